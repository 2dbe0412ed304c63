package networkinfo

// Config contains config info about the network which is needed by a client or a key server.
type Config struct {
	Chain      Chain       `yaml:"chain"`
	KeyServers []KeyServer `yaml:"keyServers"`
	Threshold  int         `yaml:"threshold"` // The number of key servers whose keys are needed to decrypt an answer.
	Gateways   []Gateway   `yaml:"gateways"`
}

// Chain contains info about the JSON-RPC node and the survey package.
type Chain struct {
	RPCURL    string `yaml:"rpcUrl"`
	PackageID string `yaml:"packageId"`
	Timeout   string `yaml:"timeout"` // A Go duration string, e.g. "15s".
}

// KeyServer contains info about a key server which is needed by a client.
type KeyServer struct {
	ObjectID  string `yaml:"objectId"`
	URL       string `yaml:"url"`
	PublicKey string `yaml:"publicKey"` // Base64 of the compressed G2 public key.
}

// Gateway types.
const (
	GatewayTypeAggregator = "aggregator"
	GatewayTypeIPFS       = "ipfs"
)

// Gateway contains info about a storage gateway blobs can be fetched from.
type Gateway struct {
	Type         string `yaml:"type"`
	URL          string `yaml:"url"`
	PublisherURL string `yaml:"publisherUrl"` // Only used by aggregator gateways that also accept uploads.
}
