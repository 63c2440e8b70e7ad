package dto

// CreateBatchRequest is the body of POST /api/v1/batches.
// Price is given either in wei or as a decimal ether amount.
type CreateBatchRequest struct {
	ProduceName  string   `json:"produce_name"`
	FarmLocation string   `json:"farm_location"`
	IPFSHash     string   `json:"ipfs_hash"`
	Distributor  string   `json:"distributor"`
	Retailer     string   `json:"retailer"`
	Price        string   `json:"price"`
	PriceEth     string   `json:"price_eth"`
	Serials      []string `json:"serials"`
	// SerialsText is a newline separated alternative to Serials
	SerialsText string `json:"serials_text"`
}

// FundBatchRequest carries the escrow deposit
type FundBatchRequest struct {
	Value    string `json:"value"`
	ValueEth string `json:"value_eth"`
}

// DenyDeliveryRequest must carry confirm=true; denial cannot be undone
type DenyDeliveryRequest struct {
	Confirm bool `json:"confirm"`
}

// SerialsRequest names items by serial number, as a list or newline separated text
type SerialsRequest struct {
	Serials     []string `json:"serials"`
	SerialsText string   `json:"serials_text"`
}

// VerifyRequest is the body of the bulk verification endpoint
type VerifyRequest struct {
	Serials []string `json:"serials"`
}

// CreateShipmentRequest is the body of POST /api/v1/shipments.
// The escrowed value defaults to the price.
type CreateShipmentRequest struct {
	Receiver string `json:"receiver"`
	Distance uint64 `json:"distance"`
	Price    string `json:"price"`
	PriceEth string `json:"price_eth"`
	Value    string `json:"value"`
	ValueEth string `json:"value_eth"`
}

// ShipmentActionRequest identifies the receiver of the caller's shipment
type ShipmentActionRequest struct {
	Receiver string `json:"receiver"`
}
