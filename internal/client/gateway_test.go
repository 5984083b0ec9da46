package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"umbra.legal/relay/internal/client"
	"umbra.legal/relay/internal/http/dto"
	"umbra.legal/relay/internal/model"
)

var _ = Describe("Gateway", func() {
	var (
		ctx     context.Context
		server  *httptest.Server
		gateway *client.Gateway
	)

	BeforeEach(func() {
		ctx = context.Background()
	})

	AfterEach(func() {
		if server != nil {
			server.Close()
			server = nil
		}
	})

	newGateway := func(handler http.HandlerFunc) *client.Gateway {
		server = httptest.NewServer(handler)
		return client.NewGateway(server.URL, nil)
	}

	Describe("SendMessage", func() {
		It("posts the payload and normalizes a success", func() {
			var got dto.SendMessageRequest
			gateway = newGateway(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.Method).To(Equal(http.MethodPost))
				Expect(r.URL.Path).To(Equal("/api/send-message"))
				Expect(json.NewDecoder(r.Body).Decode(&got)).To(Succeed())
				_ = json.NewEncoder(w).Encode(dto.SendMessageResponse{
					Success: true, MessageID: got.MessageID, Status: "sent",
				})
			})

			result := gateway.SendMessage(ctx, client.SendPayload{
				Message:    "Hola",
				FunctionID: "1.1",
				MessageID:  "m1",
				WebhookURL: "http://n8n.local/hook",
			})

			Expect(result.Success).To(BeTrue())
			Expect(result.MessageID).To(Equal("m1"))
			Expect(result.Status).To(Equal("sent"))
			Expect(got.Message).To(Equal("Hola"))
			Expect(got.FunctionID).To(Equal("1.1"))
			Expect(got.Webhook).To(Equal("http://n8n.local/hook"))
		})

		It("generates a user-prefixed message id when absent", func() {
			gateway = newGateway(func(w http.ResponseWriter, r *http.Request) {
				var req dto.SendMessageRequest
				_ = json.NewDecoder(r.Body).Decode(&req)
				_ = json.NewEncoder(w).Encode(dto.SendMessageResponse{Success: true, MessageID: req.MessageID, Status: "sent"})
			})

			result := gateway.SendMessage(ctx, client.SendPayload{
				Message: "Hola", FunctionID: "1.1", WebhookURL: "http://n8n.local/hook",
			})
			Expect(result.Success).To(BeTrue())
			Expect(result.MessageID).To(HavePrefix("user_"))
		})

		It("converts a server-reported failure into a failure result", func() {
			gateway = newGateway(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(dto.SendMessageResponse{
					Success: false, Error: "webhook failed with status: 503", MessageID: "m1", Status: "error",
				})
			})

			result := gateway.SendMessage(ctx, client.SendPayload{
				Message: "Hola", FunctionID: "1.1", MessageID: "m1", WebhookURL: "http://n8n.local/hook",
			})
			Expect(result.Success).To(BeFalse())
			Expect(result.Status).To(Equal("error"))
			Expect(result.Error).To(ContainSubstring("503"))
			Expect(result.MessageID).To(Equal("m1"))
		})

		It("converts transport failures into a failure result instead of panicking", func() {
			gateway = client.NewGateway("http://127.0.0.1:1", nil)

			result := gateway.SendMessage(ctx, client.SendPayload{
				Message: "Hola", FunctionID: "1.1", MessageID: "m1", WebhookURL: "http://n8n.local/hook",
			})
			Expect(result.Success).To(BeFalse())
			Expect(result.MessageID).To(Equal("m1"))
			Expect(result.Error).NotTo(BeEmpty())
		})
	})

	Describe("PollResponses", func() {
		It("returns the drained batch", func() {
			gateway = newGateway(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.URL.Path).To(Equal("/api/pending-responses"))
				_ = json.NewEncoder(w).Encode(dto.PendingResponsesResponse{
					Responses: []model.BufferedResponse{{MessageID: "m1", FunctionID: "1.1", Output: "Respuesta"}},
					Count:     1,
				})
			})

			responses, err := gateway.PollResponses(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(responses).To(HaveLen(1))
			Expect(responses[0].Output).To(Equal("Respuesta"))
		})

		It("errors on transport failure", func() {
			gateway = client.NewGateway("http://127.0.0.1:1", nil)
			_, err := gateway.PollResponses(ctx)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("MessageStatus", func() {
		It("returns the reported status", func() {
			gateway = newGateway(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.URL.Path).To(Equal("/api/message-status/m1"))
				_ = json.NewEncoder(w).Encode(dto.MessageStatusResponse{Status: "delivered", HasResponse: true})
			})

			status, err := gateway.MessageStatus(ctx, "m1")
			Expect(err).NotTo(HaveOccurred())
			Expect(status).To(Equal("delivered"))
		})

		It("defaults an empty status to unknown", func() {
			gateway = newGateway(func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(map[string]any{})
			})

			status, err := gateway.MessageStatus(ctx, "m1")
			Expect(err).NotTo(HaveOccurred())
			Expect(status).To(Equal("unknown"))
		})
	})

	Describe("ClearCache", func() {
		It("issues the delete", func() {
			gateway = newGateway(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.Method).To(Equal(http.MethodDelete))
				Expect(r.URL.Path).To(Equal("/api/clear-cache"))
				_ = json.NewEncoder(w).Encode(dto.ClearCacheResponse{Success: true})
			})

			Expect(gateway.ClearCache(ctx)).To(Succeed())
		})
	})
})
