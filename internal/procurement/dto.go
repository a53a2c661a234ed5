package procurement

import "time"

// Request payloads. Validation tags cover shape; business rules are
// re-checked in the service.

type poItemRequest struct {
	ProductID     int64   `json:"product_id" validate:"required,gt=0"`
	Quantity      float64 `json:"quantity" validate:"required,gt=0"`
	UnitPrice     float64 `json:"unit_price" validate:"gte=0"`
	TaxPercentage float64 `json:"tax_percentage" validate:"gte=0,lte=100"`
}

type createPORequest struct {
	SupplierID           int64           `json:"supplier_id" validate:"required,gt=0"`
	WarehouseID          int64           `json:"warehouse_id" validate:"required,gt=0"`
	OrderDate            *time.Time      `json:"order_date"`
	ExpectedDeliveryDate *time.Time      `json:"expected_delivery_date"`
	Notes                string          `json:"notes" validate:"max=2000"`
	Items                []poItemRequest `json:"items" validate:"required,min=1,dive"`
}

type grnItemRequest struct {
	PurchaseOrderItemID int64   `json:"purchase_order_item_id" validate:"required,gt=0"`
	Quantity            float64 `json:"quantity" validate:"required,gt=0"`
}

type createGRNRequest struct {
	PurchaseOrderID int64            `json:"purchase_order_id" validate:"required,gt=0"`
	ReceiptDate     *time.Time       `json:"receipt_date"`
	Notes           string           `json:"notes" validate:"max=2000"`
	Items           []grnItemRequest `json:"items" validate:"required,min=1,dive"`
}

type invoiceItemRequest struct {
	ProductID     int64   `json:"product_id" validate:"required,gt=0"`
	Quantity      float64 `json:"quantity" validate:"required,gt=0"`
	UnitPrice     float64 `json:"unit_price" validate:"gte=0"`
	TaxPercentage float64 `json:"tax_percentage" validate:"gte=0,lte=100"`
}

type createInvoiceRequest struct {
	PurchaseOrderID int64                `json:"purchase_order_id" validate:"omitempty,gt=0"`
	InvoiceDate     *time.Time           `json:"invoice_date"`
	DueDate         time.Time            `json:"due_date" validate:"required"`
	DiscountAmount  float64              `json:"discount_amount" validate:"gte=0"`
	Items           []invoiceItemRequest `json:"items" validate:"required,min=1,dive"`
}

type invoiceFromGRNRequest struct {
	GoodsReceiptID int64      `json:"goods_receipt_id" validate:"required,gt=0"`
	InvoiceDate    *time.Time `json:"invoice_date"`
	DueDate        time.Time  `json:"due_date" validate:"required"`
	DiscountAmount float64    `json:"discount_amount" validate:"gte=0"`
}

type attachFileRequest struct {
	FileURL string `json:"file_url" validate:"required,url"`
}

type createPaymentRequest struct {
	PurchaseInvoiceID int64      `json:"purchase_invoice_id" validate:"required,gt=0"`
	Amount            float64    `json:"amount" validate:"required,gt=0"`
	Method            string     `json:"method" validate:"required,oneof=cash transfer cheque"`
	PaymentDate       *time.Time `json:"payment_date"`
}

type updatePaymentRequest struct {
	Amount float64 `json:"amount" validate:"omitempty,gt=0"`
	Status string  `json:"status" validate:"omitempty,oneof=completed cancelled"`
}

// Response payloads.

type poItemResponse struct {
	ID               int64   `json:"id"`
	ProductID        int64   `json:"product_id"`
	Quantity         float64 `json:"quantity"`
	UnitPrice        float64 `json:"unit_price"`
	TaxPercentage    float64 `json:"tax_percentage"`
	LineTotal        float64 `json:"line_total"`
	ReceivedQuantity float64 `json:"received_quantity"`
}

type poResponse struct {
	ID                   int64            `json:"id"`
	Number               string           `json:"number"`
	SupplierID           int64            `json:"supplier_id"`
	WarehouseID          int64            `json:"warehouse_id"`
	Status               string           `json:"status"`
	OrderDate            time.Time        `json:"order_date"`
	ExpectedDeliveryDate *time.Time       `json:"expected_delivery_date,omitempty"`
	TotalAmount          float64          `json:"total_amount"`
	FullyReceived        bool             `json:"fully_received"`
	Notes                string           `json:"notes,omitempty"`
	Items                []poItemResponse `json:"items,omitempty"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`
}

func toPOResponse(po PurchaseOrder, items []PurchaseOrderItem) poResponse {
	resp := poResponse{
		ID:            po.ID,
		Number:        po.Number,
		SupplierID:    po.SupplierID,
		WarehouseID:   po.WarehouseID,
		Status:        string(po.Status),
		OrderDate:     po.OrderDate,
		TotalAmount:   po.TotalAmount,
		FullyReceived: FullyReceived(items),
		Notes:         po.Notes,
		CreatedAt:     po.CreatedAt,
		UpdatedAt:     po.UpdatedAt,
	}
	if !po.ExpectedDeliveryDate.IsZero() {
		d := po.ExpectedDeliveryDate
		resp.ExpectedDeliveryDate = &d
	}
	for _, it := range items {
		resp.Items = append(resp.Items, poItemResponse{
			ID:               it.ID,
			ProductID:        it.ProductID,
			Quantity:         it.Quantity,
			UnitPrice:        it.UnitPrice,
			TaxPercentage:    it.TaxPercentage,
			LineTotal:        it.LineTotal,
			ReceivedQuantity: it.ReceivedQuantity,
		})
	}
	return resp
}

type grnItemResponse struct {
	ID                  int64   `json:"id"`
	PurchaseOrderItemID int64   `json:"purchase_order_item_id,omitempty"`
	ProductID           int64   `json:"product_id"`
	ReceivedQuantity    float64 `json:"received_quantity"`
	UnitPrice           float64 `json:"unit_price"`
	TaxPercentage       float64 `json:"tax_percentage"`
}

type grnResponse struct {
	ID                  int64             `json:"id"`
	Number              string            `json:"number"`
	PurchaseOrderID     int64             `json:"purchase_order_id,omitempty"`
	Status              string            `json:"status"`
	ReceiptDate         time.Time         `json:"receipt_date"`
	TotalReceivedAmount float64           `json:"total_received_amount"`
	Notes               string            `json:"notes,omitempty"`
	Items               []grnItemResponse `json:"items,omitempty"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

func toGRNResponse(grn GoodsReceipt, items []GoodsReceiptItem) grnResponse {
	resp := grnResponse{
		ID:                  grn.ID,
		Number:              grn.Number,
		PurchaseOrderID:     grn.PurchaseOrderID,
		Status:              string(grn.Status),
		ReceiptDate:         grn.ReceiptDate,
		TotalReceivedAmount: grn.TotalReceivedAmount,
		Notes:               grn.Notes,
		CreatedAt:           grn.CreatedAt,
		UpdatedAt:           grn.UpdatedAt,
	}
	for _, it := range items {
		resp.Items = append(resp.Items, grnItemResponse{
			ID:                  it.ID,
			PurchaseOrderItemID: it.PurchaseOrderItemID,
			ProductID:           it.ProductID,
			ReceivedQuantity:    it.ReceivedQuantity,
			UnitPrice:           it.UnitPrice,
			TaxPercentage:       it.TaxPercentage,
		})
	}
	return resp
}

type invoiceItemResponse struct {
	ID            int64   `json:"id"`
	ProductID     int64   `json:"product_id"`
	Quantity      float64 `json:"quantity"`
	UnitPrice     float64 `json:"unit_price"`
	TaxPercentage float64 `json:"tax_percentage"`
	TaxAmount     float64 `json:"tax_amount"`
	LineTotal     float64 `json:"line_total"`
}

type invoiceResponse struct {
	ID              int64                 `json:"id"`
	Number          string                `json:"number"`
	PurchaseOrderID int64                 `json:"purchase_order_id,omitempty"`
	GoodsReceiptID  int64                 `json:"goods_receipt_id,omitempty"`
	Status          string                `json:"status"`
	InvoiceDate     time.Time             `json:"invoice_date"`
	DueDate         time.Time             `json:"due_date"`
	Subtotal        float64               `json:"subtotal"`
	TaxAmount       float64               `json:"tax_amount"`
	DiscountAmount  float64               `json:"discount_amount"`
	TotalAmount     float64               `json:"total_amount"`
	PaidAmount      float64               `json:"paid_amount"`
	Balance         float64               `json:"balance"`
	FileURL         string                `json:"invoice_file_url,omitempty"`
	Items           []invoiceItemResponse `json:"items,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

func toInvoiceResponse(inv PurchaseInvoice, items []PurchaseInvoiceItem) invoiceResponse {
	resp := invoiceResponse{
		ID:              inv.ID,
		Number:          inv.Number,
		PurchaseOrderID: inv.PurchaseOrderID,
		GoodsReceiptID:  inv.GoodsReceiptID,
		Status:          string(inv.Status),
		InvoiceDate:     inv.InvoiceDate,
		DueDate:         inv.DueDate,
		Subtotal:        inv.Subtotal,
		TaxAmount:       inv.TaxAmount,
		DiscountAmount:  inv.DiscountAmount,
		TotalAmount:     inv.TotalAmount,
		PaidAmount:      inv.PaidAmount,
		Balance:         inv.Balance(),
		FileURL:         inv.FileURL,
		CreatedAt:       inv.CreatedAt,
		UpdatedAt:       inv.UpdatedAt,
	}
	for _, it := range items {
		resp.Items = append(resp.Items, invoiceItemResponse{
			ID:            it.ID,
			ProductID:     it.ProductID,
			Quantity:      it.Quantity,
			UnitPrice:     it.UnitPrice,
			TaxPercentage: it.TaxPercentage,
			TaxAmount:     it.TaxAmount,
			LineTotal:     it.LineTotal,
		})
	}
	return resp
}

type paymentResponse struct {
	ID                int64     `json:"id"`
	Number            string    `json:"number"`
	PurchaseInvoiceID int64     `json:"purchase_invoice_id"`
	Amount            float64   `json:"amount"`
	Method            string    `json:"method"`
	Status            string    `json:"status"`
	PaymentDate       time.Time `json:"payment_date"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func toPaymentResponse(p SupplierPayment) paymentResponse {
	return paymentResponse{
		ID:                p.ID,
		Number:            p.Number,
		PurchaseInvoiceID: p.PurchaseInvoiceID,
		Amount:            p.Amount,
		Method:            p.Method,
		Status:            string(p.Status),
		PaymentDate:       p.PaymentDate,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

type listResponse struct {
	Items  any `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}
