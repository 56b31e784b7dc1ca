package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/packlinehq/packline-api/internal/models"
	"github.com/packlinehq/packline-api/internal/service"
)

type placeOrderResponse struct {
	Success bool   `json:"success"`
	OrderID int64  `json:"orderId"`
	Message string `json:"message"`
}

type listOrdersResponse struct {
	Success bool            `json:"success"`
	Orders  []*models.Order `json:"orders"`
}

// placeOrderHandler creates an order with its line items in one transaction
func (s *Server) placeOrderHandler(w http.ResponseWriter, r *http.Request) {
	var in service.PlaceOrderInput

	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	order, err := s.orderService.PlaceOrder(r.Context(), &in)

	if err != nil {
		s.respondWithServiceError(w, err, "Order")
		return
	}

	s.respondWithJSON(w, http.StatusCreated, placeOrderResponse{
		Success: true,
		OrderID: order.OrderID,
		Message: "Order placed successfully",
	})
}

// getOrdersHandler returns the active order list with nested line items;
// ?all=1 includes completed orders
func (s *Server) getOrdersHandler(w http.ResponseWriter, r *http.Request) {
	includeCompleted := r.URL.Query().Get("all") == "1"

	orders, err := s.orderService.ListOrders(r.Context(), includeCompleted)

	if err != nil {
		s.respondWithServiceError(w, err, "Orders")
		return
	}

	s.respondWithJSON(w, http.StatusOK, listOrdersResponse{
		Success: true,
		Orders:  orders,
	})
}

// updateOrderStatusHandler changes an order's status
func (s *Server) updateOrderStatusHandler(w http.ResponseWriter, r *http.Request) {
	orderID, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}

	var body struct {
		Status string `json:"status"`
	}

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	if err := s.orderService.UpdateOrderStatus(r.Context(), orderID, body.Status); err != nil {
		s.respondWithServiceError(w, err, "Order")
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Message: "Order status updated successfully",
	})
}

// deleteOrderHandler removes an order and its line items. Deleting an absent
// order still reports success, matching the idempotent contract.
func (s *Server) deleteOrderHandler(w http.ResponseWriter, r *http.Request) {
	orderID, ok := s.pathID(w, r, "orderId")
	if !ok {
		return
	}

	if err := s.orderService.DeleteOrder(r.Context(), orderID); err != nil {
		s.respondWithServiceError(w, err, "Order")
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Message: "Order deleted successfully",
	})
}

// updateOrderProductHandler updates one line item addressed by product id
func (s *Server) updateOrderProductHandler(w http.ResponseWriter, r *http.Request) {
	orderID, ok := s.pathID(w, r, "orderId")
	if !ok {
		return
	}

	productID, ok := s.pathID(w, r, "productId")
	if !ok {
		return
	}

	var product models.OrderProduct

	if err := json.NewDecoder(r.Body).Decode(&product); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	updated, err := s.orderService.UpdateOrderProduct(r.Context(), orderID, productID, &product)

	if err != nil {
		s.respondWithServiceError(w, err, "Order product")
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    updated,
	})
}

// completeOrderHandler marks an order completed; the row is retained with
// status "completed" and drops out of the active list
func (s *Server) completeOrderHandler(w http.ResponseWriter, r *http.Request) {
	orderID, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}

	if err := s.orderService.CompleteOrder(r.Context(), orderID); err != nil {
		s.respondWithServiceError(w, err, "Order")
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Message: "Order marked as completed",
	})
}

func (s *Server) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)

	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid "+name)
		return 0, false
	}

	return id, true
}
