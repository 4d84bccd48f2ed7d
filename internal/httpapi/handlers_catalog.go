package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Shadowdev1174/Inventory-POS-WebApp/internal/domain"
)

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	products, err := s.svc.ListProducts(r.Context(), domain.ProductFilter{
		Search:     q.Get("search"),
		CategoryID: q.Get("category_id"),
		LowStock:   q.Get("low_stock") == "true",
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, products)
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := s.svc.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, product)
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req domain.ProductCreateRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		return
	}
	product, err := s.svc.CreateProduct(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, product)
}

func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req domain.ProductUpdateRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		return
	}
	product, err := s.svc.UpdateProduct(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, product)
}

func (s *Server) handleArchiveProduct(w http.ResponseWriter, r *http.Request) {
	product, err := s.svc.ArchiveProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, product)
}

func (s *Server) handleRestoreProduct(w http.ResponseWriter, r *http.Request) {
	product, err := s.svc.RestoreProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, product)
}

func (s *Server) handlePurgeProduct(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.PurgeProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleArchivedProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.svc.ListArchivedProducts(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, products)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.svc.ListCategories(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, categories)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req domain.CategoryCreateRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		return
	}
	category, err := s.svc.CreateCategory(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, category)
}

func (s *Server) handleListSuppliers(w http.ResponseWriter, r *http.Request) {
	suppliers, err := s.svc.ListSuppliers(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, suppliers)
}

func (s *Server) handleCreateSupplier(w http.ResponseWriter, r *http.Request) {
	var req domain.SupplierCreateRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		return
	}
	supplier, err := s.svc.CreateSupplier(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, supplier)
}

func (s *Server) handleLowStock(w http.ResponseWriter, r *http.Request) {
	products, err := s.svc.LowStockReport(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, products)
}

func (s *Server) handleInventoryValue(w http.ResponseWriter, r *http.Request) {
	value, err := s.svc.InventoryValue(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, value)
}

func (s *Server) handleRecordMovement(w http.ResponseWriter, r *http.Request) {
	var req domain.MovementRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		return
	}
	result, err := s.svc.RecordMovement(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, result)
}

func (s *Server) handleListMovements(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	movements, err := s.svc.ListMovements(r.Context(), q.Get("product_id"), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, movements)
}

func (s *Server) handleReconcileStock(w http.ResponseWriter, r *http.Request) {
	report, err := s.svc.ReconcileStock(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}
