package handlers

import (
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/diagnosis/zayna-hotel/services/hotel/internal/domain"
	"github.com/diagnosis/zayna-hotel/services/hotel/internal/identity"
	"github.com/diagnosis/zayna-hotel/services/hotel/internal/service"
)

func (h *Handlers) SpaServices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    h.catalog.Spa(r.URL.Query().Get("category")),
	})
}

func (h *Handlers) DiningMenu(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    h.catalog.Menu(r.URL.Query().Get("category")),
	})
}

func (h *Handlers) TourismAttractions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    h.catalog.Tourism(r.URL.Query().Get("category")),
	})
}

func (h *Handlers) BookSpa(w http.ResponseWriter, r *http.Request) {
	c, err := customer(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req domain.SpaBookingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	booking, err := h.bookingService.BookSpa(r.Context(), c, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success":   true,
		"bookingId": booking.ID.Hex(),
		"booking":   booking,
	})
}

func (h *Handlers) ListSpaBookings(w http.ResponseWriter, r *http.Request) {
	c, err := customer(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	list, err := h.bookingService.SpaBookings(r.Context(), c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": list})
}

func (h *Handlers) OrderDining(w http.ResponseWriter, r *http.Request) {
	c, err := customer(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req domain.DiningOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	order, err := h.bookingService.OrderDining(r.Context(), c, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"orderId": order.ID.Hex(),
		"order":   order,
	})
}

func (h *Handlers) ListDiningOrders(w http.ResponseWriter, r *http.Request) {
	c, err := customer(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	list, err := h.bookingService.DiningOrders(r.Context(), c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": list})
}

func (h *Handlers) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	c, err := customer(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req domain.PaymentIntentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	intent, err := h.paymentService.CreateIntent(r.Context(), c, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, intent)
}

// Chat answers anyone; authenticated turns are also saved to history.
func (h *Handlers) Chat(w http.ResponseWriter, r *http.Request) {
	var req domain.ChatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.chatError(w, r, domain.Invalid(service.NoMessageReply))
		return
	}

	var userID *primitive.ObjectID
	if c, err := customer(r); err == nil {
		userID = &c.ID
	}

	reply, err := h.chatService.Reply(r.Context(), userID, &req)
	if err != nil {
		h.chatError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"reply": reply})
}

// chatError keeps the reply field so the chat widget can render the failure inline.
func (h *Handlers) chatError(w http.ResponseWriter, r *http.Request, err error) {
	de, ok := domain.AsError(err)
	if !ok || de.Kind != domain.KindInvalid {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusBadRequest, map[string]interface{}{
		"success": false,
		"error":   de.Message,
		"code":    de.Code,
		"reply":   de.Message,
	})
}

func (h *Handlers) ChatHistory(w http.ResponseWriter, r *http.Request) {
	c, err := customer(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	messages, err := h.chatService.History(r.Context(), c.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    map[string]interface{}{"messages": messages},
	})
}

func (h *Handlers) AppendChatHistory(w http.ResponseWriter, r *http.Request) {
	c, err := customer(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req domain.ChatTurnRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.chatService.AppendTurn(r.Context(), c.ID, &req); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (h *Handlers) Contact(w http.ResponseWriter, r *http.Request) {
	var req domain.ContactRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := h.contactService.Submit(r.Context(), &req); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Thank you for contacting us. We will get back to you soon.",
	})
}

// Health is a liveness check; it reports configuration, not connectivity.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":        true,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"env": map[string]bool{
			"mongoConfigured":  h.config.Mongo.URI != "",
			"redisConfigured":  h.config.Redis.URL != "",
			"stripeConfigured": h.config.Stripe.SecretKey != "",
			"natsConfigured":   h.config.NATS.URL != "",
		},
	})
}

// scopeByIdentity keys idempotent replays to the caller.
func scopeByIdentity(r *http.Request) string {
	id := identity.FromContext(r.Context())
	if id.Authenticated() {
		return id.ID
	}
	return ""
}
