package seal

// Key server HTTP paths.
const (
	FetchKeyPath = "/v1/fetch_key"
	ServicePath  = "/v1/service"
)

// FetchKeyRequest is the body of POST /v1/fetch_key.
type FetchKeyRequest struct {
	PTB              string      `json:"ptb"` // base64 of the canonical authorization transaction bytes
	Certificate      Certificate `json:"certificate"`
	RequestSignature string      `json:"requestSignature"`
	RequestID        string      `json:"requestId"`
}

// DecryptionKey is one user secret key returned by a key server.
type DecryptionKey struct {
	ID  string `json:"id"`  // key id, 0x-prefixed hex, without the package id
	Key string `json:"key"` // compressed G1 point, base64
}

// FetchKeyResponse is the body of a successful POST /v1/fetch_key.
type FetchKeyResponse struct {
	RequestID      string          `json:"requestId"`
	DecryptionKeys []DecryptionKey `json:"decryptionKeys"`
}

// ServiceInfoResponse is the body of GET /v1/service.
type ServiceInfoResponse struct {
	ObjectID  string `json:"objectId"`
	PackageID string `json:"packageId"`
	PublicKey string `json:"publicKey"` // compressed G2 point, base64
}

// ErrorResponse is returned by the key server for any rejected request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
