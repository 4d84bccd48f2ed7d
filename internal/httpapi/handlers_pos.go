package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Shadowdev1174/Inventory-POS-WebApp/internal/domain"
)

func (s *Server) handleCart(w http.ResponseWriter, r *http.Request) {
	summary, err := s.svc.Cart(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleAddToCart(w http.ResponseWriter, r *http.Request) {
	var req domain.AddToCartRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		return
	}
	item, err := s.svc.AddToCart(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, item)
}

func (s *Server) handleUpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateCartItemRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		return
	}
	item, err := s.svc.UpdateCartItem(r.Context(), chi.URLParam(r, "id"), req.Quantity)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if item == nil {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
		return
	}
	s.writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleRemoveFromCart(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.RemoveFromCart(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

func (s *Server) handleClearCart(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.ClearCart(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req domain.CheckoutRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		return
	}
	result, err := s.svc.Checkout(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, result)
}

func (s *Server) handleListSales(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	sales, err := s.svc.ListSales(r.Context(), domain.SalesQuery{
		Search:  q.Get("search"),
		Cashier: q.Get("cashier"),
		Day:     q.Get("date"),
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sales)
}

// handleGetSale looks the sale up by number when the path segment carries the
// INV- prefix, otherwise by ID.
func (s *Server) handleGetSale(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "id")
	var (
		sale *domain.Sale
		err  error
	)
	if strings.HasPrefix(strings.ToUpper(key), "INV-") {
		sale, err = s.svc.GetSaleByNumber(r.Context(), key)
	} else {
		sale, err = s.svc.GetSale(r.Context(), key)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sale)
}

func (s *Server) handleReceipt(w http.ResponseWriter, r *http.Request) {
	receipt, err := s.svc.Receipt(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, receipt)
}

func (s *Server) handleDailySummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.svc.DailySummary(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleCreateRefund(w http.ResponseWriter, r *http.Request) {
	var req domain.RefundRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		return
	}
	refund, err := s.svc.CreateRefund(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, refund)
}

func (s *Server) handleListRefunds(w http.ResponseWriter, r *http.Request) {
	refunds, err := s.svc.ListRefunds(r.Context(), r.URL.Query().Get("sale_id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, refunds)
}
