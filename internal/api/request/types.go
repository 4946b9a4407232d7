package request

// BanRequest is the request body for banning an address
type BanRequest struct {
	Address string `json:"address"`
}
