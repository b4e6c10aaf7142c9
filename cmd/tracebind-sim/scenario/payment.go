package scenario

import (
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// PaymentScenario returns the online payment system scenario.
// Simulates: gateway → payment-service → fraud-detection/payment-processor → external APIs
//
// The fraud check and the card charge run in parallel, and the checkout
// carries a correlation context (tenant, then payment id) down to them.
func PaymentScenario() *Scenario {
	return &Scenario{
		Name:        "payment",
		Description: "Online payment system with fraud detection and external payment processor",
		Services: []Service{
			{Name: "payment-gateway"},
			{Name: "payment-service"},
			{Name: "fraud-detection"},
			{Name: "ml-service"},
			{Name: "payment-processor"},
			{Name: "notification-service"},
		},
		RootSpan: SpanTemplate{
			Name:     "POST /api/v1/checkout",
			Service:  "payment-gateway",
			Kind:     SpanKindServer,
			Duration: Duration(180_000_000), // 180ms
			Attributes: map[string]string{
				string(semconv.HTTPRequestMethodKey):      "POST",
				string(semconv.HTTPRouteKey):              "/api/v1/checkout",
				string(semconv.URLPathKey):                "/api/v1/checkout",
				string(semconv.HTTPResponseStatusCodeKey): "200",
			},
			Correlation: map[string]string{"tenant.id": "acme"},
			Children: []SpanTemplate{
				{
					Name:     "ProcessPayment",
					Service:  "payment-service",
					Kind:     SpanKindInternal,
					Duration: Duration(150_000_000), // 150ms
					Attributes: map[string]string{
						"payment.amount":   "99.99",
						"payment.currency": "USD",
					},
					Correlation: map[string]string{"payment.id": "pay-1001"},
					Parallel:    true,
					Logs: []LogTemplate{
						{Level: "INFO", Message: "Processing payment request", Delay: Duration(1_000_000)},
					},
					Children: []SpanTemplate{
						{
							Name:     "AnalyzeTransaction",
							Service:  "fraud-detection",
							Kind:     SpanKindClient,
							Duration: Duration(45_000_000), // 45ms
							Attributes: map[string]string{
								string(semconv.RPCSystemKey):  "grpc",
								string(semconv.RPCServiceKey): "FraudDetection",
								string(semconv.RPCMethodKey):  "AnalyzeTransaction",
							},
							Children: []SpanTemplate{
								{
									Name:     "Predict",
									Service:  "ml-service",
									Kind:     SpanKindClient,
									Duration: Duration(25_000_000), // 25ms
									Attributes: map[string]string{
										string(semconv.RPCSystemKey):  "grpc",
										string(semconv.RPCServiceKey): "MLService",
										string(semconv.RPCMethodKey):  "Predict",
										"ml.model":                    "fraud-detector-v2",
									},
									Logs: []LogTemplate{
										{
											Level:      "DEBUG",
											Message:    "ML prediction completed",
											Attributes: map[string]string{"ml.score": "0.12"},
										},
									},
								},
							},
						},
						{
							Name:        "ChargeCard",
							Service:     "payment-processor",
							Kind:        SpanKindInternal,
							Duration:    Duration(80_000_000), // 80ms
							ErrorRate:   0.05,
							ErrorStatus: "payment declined",
							Children: []SpanTemplate{
								{
									Name:     "POST /v2/charges",
									Service:  "payment-processor",
									Kind:     SpanKindClient,
									Duration: Duration(65_000_000), // 65ms
									Attributes: map[string]string{
										string(semconv.HTTPRequestMethodKey):      "POST",
										string(semconv.URLFullKey):                "https://api.stripe.com/v2/charges",
										string(semconv.HTTPResponseStatusCodeKey): "200",
									},
								},
							},
						},
					},
				},
				{
					Name:     "SendConfirmation",
					Service:  "notification-service",
					Kind:     SpanKindProducer,
					Duration: Duration(15_000_000), // 15ms
					Attributes: map[string]string{
						string(semconv.MessagingSystemKey):          "nats",
						string(semconv.MessagingDestinationNameKey): "notifications",
						string(semconv.MessagingOperationNameKey):   "publish",
					},
					Logs: []LogTemplate{
						{Level: "INFO", Message: "Confirmation email queued"},
					},
					Children: []SpanTemplate{
						{
							Name:     "process notifications",
							Service:  "notification-service",
							Kind:     SpanKindConsumer,
							Duration: Duration(10_000_000), // 10ms
							Attributes: map[string]string{
								string(semconv.MessagingSystemKey):          "nats",
								string(semconv.MessagingDestinationNameKey): "notifications",
								string(semconv.MessagingOperationNameKey):   "process",
							},
							Logs: []LogTemplate{
								{Level: "INFO", Message: "Confirmation email sent"},
							},
						},
					},
				},
			},
		},
	}
}

// HealthCheckScenario returns a single-span scenario for checking that the
// exporter reaches the collector.
func HealthCheckScenario() *Scenario {
	return &Scenario{
		Name:        "health-check",
		Description: "Simple HTTP health check for testing OTLP connectivity",
		Services: []Service{
			{Name: "health-service"},
		},
		RootSpan: SpanTemplate{
			Name:     "GET /health",
			Service:  "health-service",
			Kind:     SpanKindServer,
			Duration: Duration(5_000_000), // 5ms
			Attributes: map[string]string{
				string(semconv.HTTPRequestMethodKey):      "GET",
				string(semconv.HTTPRouteKey):              "/health",
				string(semconv.URLPathKey):                "/health",
				string(semconv.HTTPResponseStatusCodeKey): "200",
			},
			Logs: []LogTemplate{
				{Level: "INFO", Message: "Health check passed"},
			},
		},
	}
}
