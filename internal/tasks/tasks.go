package tasks

const (
	TypeDcaPurchase = "dca:purchase"

	QUEUE_NAME = "dca_queue"
)

// DcaPurchaseRequest is the payload of a TypeDcaPurchase task.
type DcaPurchaseRequest struct {
	OrderID uint64 `json:"order_id" validate:"required"`
}
