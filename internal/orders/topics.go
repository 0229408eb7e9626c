package orders

const (
	TopicOrderCommitted = "order.committed"
	TopicOrderPaid      = "order.paid"
	TopicStockAdjusted  = "variety.stock.adjusted"
	TopicStockLow       = "variety.stock.low"
)

// Partition key = order_id (or variety_id for stock events) so events for
// one aggregate stay ordered.
func PartitionKey(id string) []byte { return []byte(id) }
