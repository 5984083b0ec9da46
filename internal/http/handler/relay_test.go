package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"umbra.legal/relay/internal/http/handler"
	"umbra.legal/relay/internal/http/router"
	"umbra.legal/relay/internal/model"
	"umbra.legal/relay/internal/service"
)

type mockRelayService struct {
	sendFn    func(ctx context.Context, params service.SendParams) (*service.SendResult, error)
	receiveFn func(ctx context.Context, params service.ReceiveParams) (*model.BufferedResponse, error)
	drainFn   func(ctx context.Context) ([]model.BufferedResponse, error)
	statusFn  func(ctx context.Context, messageID string) (*service.StatusResult, error)
	clearFn   func(ctx context.Context) error

	received []service.ReceiveParams
}

func (m *mockRelayService) SendMessage(ctx context.Context, params service.SendParams) (*service.SendResult, error) {
	if m.sendFn != nil {
		return m.sendFn(ctx, params)
	}
	return &service.SendResult{MessageID: params.MessageID, Status: "sent"}, nil
}

func (m *mockRelayService) ReceiveResponse(ctx context.Context, params service.ReceiveParams) (*model.BufferedResponse, error) {
	m.received = append(m.received, params)
	if m.receiveFn != nil {
		return m.receiveFn(ctx, params)
	}
	return &model.BufferedResponse{MessageID: params.MessageID}, nil
}

func (m *mockRelayService) DrainResponses(ctx context.Context) ([]model.BufferedResponse, error) {
	if m.drainFn != nil {
		return m.drainFn(ctx)
	}
	return nil, nil
}

func (m *mockRelayService) Status(ctx context.Context, messageID string) (*service.StatusResult, error) {
	if m.statusFn != nil {
		return m.statusFn(ctx, messageID)
	}
	return &service.StatusResult{Status: model.DeliveryUnknown}, nil
}

func (m *mockRelayService) ClearAll(ctx context.Context) error {
	if m.clearFn != nil {
		return m.clearFn(ctx)
	}
	return nil
}

var _ = Describe("RelayHandler", func() {
	var (
		engine *gin.Engine
		svc    *mockRelayService
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		engine = gin.New()
		svc = &mockRelayService{}
		router.SetupRoutes(engine, svc, router.RouterConfig{})
	})

	do := func(req *http.Request) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		return w
	}

	Describe("GET /api/health", func() {
		It("reports ok with a timestamp", func() {
			w := do(httptest.NewRequest(http.MethodGet, "/api/health", nil))
			Expect(w.Code).To(Equal(http.StatusOK))

			var resp map[string]string
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["status"]).To(Equal("ok"))
			Expect(resp["timestamp"]).NotTo(BeEmpty())
		})
	})

	Describe("POST /api/send-message", func() {
		newSend := func(body map[string]any) *http.Request {
			payload, _ := json.Marshal(body)
			req := httptest.NewRequest(http.MethodPost, "/api/send-message", bytes.NewReader(payload))
			req.Header.Set("Content-Type", "application/json")
			return req
		}

		It("returns the send result on success", func() {
			w := do(newSend(map[string]any{
				"message":    "Hola",
				"functionId": "1.1",
				"messageId":  "m1",
				"webhook":    "http://n8n.local/hook",
			}))
			Expect(w.Code).To(Equal(http.StatusOK))

			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["success"]).To(BeTrue())
			Expect(resp["messageId"]).To(Equal("m1"))
			Expect(resp["status"]).To(Equal("sent"))
		})

		It("maps validation failures to 400", func() {
			svc.sendFn = func(_ context.Context, params service.SendParams) (*service.SendResult, error) {
				return nil, fmt.Errorf("%w: message is required", service.ErrValidation)
			}

			w := do(newSend(map[string]any{"functionId": "1.1", "messageId": "m1", "webhook": "http://n8n.local"}))
			Expect(w.Code).To(Equal(http.StatusBadRequest))

			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["success"]).To(BeFalse())
			Expect(resp["status"]).To(Equal("error"))
			Expect(resp["error"]).To(ContainSubstring("message is required"))
		})

		It("maps forward failures to 500 with the message id echoed", func() {
			svc.sendFn = func(_ context.Context, params service.SendParams) (*service.SendResult, error) {
				return nil, fmt.Errorf("%w: webhook failed with status: 503", service.ErrForward)
			}

			w := do(newSend(map[string]any{
				"message": "Hola", "functionId": "1.1", "messageId": "m1", "webhook": "http://n8n.local",
			}))
			Expect(w.Code).To(Equal(http.StatusInternalServerError))

			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["success"]).To(BeFalse())
			Expect(resp["messageId"]).To(Equal("m1"))
			Expect(resp["status"]).To(Equal("error"))
		})
	})

	Describe("POST /api/webhook-responses", func() {
		It("accepts a structured reply", func() {
			ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
			payload, _ := json.Marshal(map[string]any{
				"messageId":  "m1",
				"functionId": "1.1",
				"output":     "Respuesta",
				"timestamp":  ts.Format(time.RFC3339),
				"metadata":   map[string]any{"confidence": 0.95, "processingTime": 2.1},
			})
			req := httptest.NewRequest(http.MethodPost, "/api/webhook-responses", bytes.NewReader(payload))
			req.Header.Set("Content-Type", "application/json")

			w := do(req)
			Expect(w.Code).To(Equal(http.StatusOK))

			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["success"]).To(BeTrue())
			Expect(resp["received"]).To(BeTrue())

			Expect(svc.received).To(HaveLen(1))
			got := svc.received[0]
			Expect(got.MessageID).To(Equal("m1"))
			Expect(got.FunctionID).To(Equal("1.1"))
			Expect(got.Output).To(Equal("Respuesta"))
			Expect(got.Timestamp).NotTo(BeNil())
			Expect(got.Metadata.Confidence).To(BeNumerically("==", 0.95))
		})

		It("accepts a raw text reply with correlation headers", func() {
			req := httptest.NewRequest(http.MethodPost, "/api/webhook-responses", bytes.NewReader([]byte("Hola")))
			req.Header.Set("Content-Type", "text/plain")
			req.Header.Set("X-Message-Id", "m2")
			req.Header.Set("X-Function-Id", "1.2")

			w := do(req)
			Expect(w.Code).To(Equal(http.StatusOK))

			Expect(svc.received).To(HaveLen(1))
			got := svc.received[0]
			Expect(got.MessageID).To(Equal("m2"))
			Expect(got.FunctionID).To(Equal("1.2"))
			Expect(got.Output).To(Equal("Hola"))
		})

		It("falls back to query params for the raw variant", func() {
			req := httptest.NewRequest(http.MethodPost, "/api/webhook-responses?messageId=m3&functionId=2.1", bytes.NewReader([]byte("texto plano")))
			req.Header.Set("Content-Type", "text/plain")

			w := do(req)
			Expect(w.Code).To(Equal(http.StatusOK))

			got := svc.received[0]
			Expect(got.MessageID).To(Equal("m3"))
			Expect(got.FunctionID).To(Equal("2.1"))
			Expect(got.Output).To(Equal("texto plano"))
		})

		It("passes empty ids through for the service to default", func() {
			req := httptest.NewRequest(http.MethodPost, "/api/webhook-responses", bytes.NewReader([]byte("sin ids")))
			req.Header.Set("Content-Type", "text/plain")

			w := do(req)
			Expect(w.Code).To(Equal(http.StatusOK))

			got := svc.received[0]
			Expect(got.MessageID).To(BeEmpty())
			Expect(got.FunctionID).To(BeEmpty())
			Expect(got.Output).To(Equal("sin ids"))
		})

		It("returns 500 when the store write fails", func() {
			svc.receiveFn = func(context.Context, service.ReceiveParams) (*model.BufferedResponse, error) {
				return nil, fmt.Errorf("storing response: connection refused")
			}

			req := httptest.NewRequest(http.MethodPost, "/api/webhook-responses", bytes.NewReader([]byte(`{"messageId":"m1"}`)))
			req.Header.Set("Content-Type", "application/json")

			w := do(req)
			Expect(w.Code).To(Equal(http.StatusInternalServerError))
		})
	})

	Describe("GET /api/pending-responses", func() {
		It("returns drained responses with a count", func() {
			svc.drainFn = func(context.Context) ([]model.BufferedResponse, error) {
				return []model.BufferedResponse{
					{MessageID: "m1", FunctionID: "1.1", Output: "uno"},
					{MessageID: "m2", FunctionID: "1.2", Output: "dos"},
				}, nil
			}

			w := do(httptest.NewRequest(http.MethodGet, "/api/pending-responses", nil))
			Expect(w.Code).To(Equal(http.StatusOK))

			var resp struct {
				Responses []model.BufferedResponse `json:"responses"`
				Count     int                      `json:"count"`
			}
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Count).To(Equal(2))
			Expect(resp.Responses).To(HaveLen(2))
		})
	})

	Describe("GET /api/message-status/:messageId", func() {
		It("reports the delivery status", func() {
			svc.statusFn = func(_ context.Context, messageID string) (*service.StatusResult, error) {
				Expect(messageID).To(Equal("m1"))
				return &service.StatusResult{Status: model.DeliveryDelivered, HasResponse: true}, nil
			}

			w := do(httptest.NewRequest(http.MethodGet, "/api/message-status/m1", nil))
			Expect(w.Code).To(Equal(http.StatusOK))

			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["status"]).To(Equal("delivered"))
			Expect(resp["hasResponse"]).To(BeTrue())
		})
	})

	Describe("DELETE /api/clear-cache", func() {
		It("clears the store", func() {
			cleared := false
			svc.clearFn = func(context.Context) error {
				cleared = true
				return nil
			}

			w := do(httptest.NewRequest(http.MethodDelete, "/api/clear-cache", nil))
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(cleared).To(BeTrue())

			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["success"]).To(BeTrue())
		})
	})
})

var _ = Describe("NewRelayHandler", func() {
	It("constructs a handler bound to the given service", func() {
		Expect(handler.NewRelayHandler(&mockRelayService{})).NotTo(BeNil())
	})
})
