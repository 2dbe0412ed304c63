package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"

	"gitee.com/czyczk/datawave/internal/blockchain/bcao"
	"gitee.com/czyczk/datawave/internal/blockchain/chaincodectx"
	"gitee.com/czyczk/datawave/internal/kvstore"
	"gitee.com/czyczk/datawave/internal/seal"
	"gitee.com/czyczk/datawave/internal/storage"
	"gitee.com/czyczk/datawave/internal/utils/hexutils"
	"gitee.com/czyczk/datawave/pkg/errorcode"
	"gitee.com/czyczk/datawave/pkg/models/authtx"
	"gitee.com/czyczk/datawave/pkg/models/survey"
)

var (
	testPackageID = objectID(0xaa)
	testSurveyID  = objectID(0x5a)
	otherSurveyID = objectID(0x5b)
	addressA      = objectID(0xa1)
	addressB      = objectID(0xb1)
)

func objectID(b byte) string {
	return fmt.Sprintf("0x%064x", b)
}

func keyIDFor(surveyID string, nonce int) []byte {
	namespace, _ := hexutils.DecodeObjectID(surveyID)
	return append(namespace, byte(nonce>>24), byte(nonce>>16), byte(nonce>>8), byte(nonce), 0x01)
}

func keyIDHex(surveyID string, nonce int) string {
	return hexutils.EncodeHex(keyIDFor(surveyID, nonce))
}

// fakeWallet 记录签名请求次数
type fakeWallet struct {
	address   string
	signErr   error
	signCalls atomic.Int32
}

func (w *fakeWallet) GetCurrentAddress(ctx context.Context) (string, error) {
	if w.address == "" {
		return "", fmt.Errorf("no account")
	}
	return w.address, nil
}

func (w *fakeWallet) SignPersonalMessage(ctx context.Context, message []byte) (string, error) {
	w.signCalls.Add(1)
	if w.signErr != nil {
		return "", w.signErr
	}
	return "signed-by-" + w.address, nil
}

// failingStore 可以读取但无法写入
type failingStore struct{}

func (failingStore) Get(key string) ([]byte, error) { return nil, errorcode.ErrorNotFound }

func (failingStore) Set(key string, value []byte) error { return fmt.Errorf("disk full") }

// fakeGateway 从内存中提供 blob
type fakeGateway struct {
	name  string
	mu    sync.Mutex
	blobs map[string][]byte
	down  bool
	delay time.Duration
	calls atomic.Int32
}

func newFakeGateway(name string) *fakeGateway {
	return &fakeGateway{name: name, blobs: map[string][]byte{}}
}

func (g *fakeGateway) Name() string { return g.name }

func (g *fakeGateway) Fetch(ctx context.Context, blobID string) ([]byte, error) {
	g.calls.Add(1)
	if g.delay > 0 {
		select {
		case <-time.After(g.delay):
		case <-ctx.Done():
			return nil, errors.Wrap(errorcode.ErrorGatewayTimeout, ctx.Err().Error())
		}
	}
	if g.down {
		return nil, fmt.Errorf("gateway %v is down", g.name)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	data, ok := g.blobs[blobID]
	if !ok {
		return nil, errorcode.ErrorNotFound
	}
	return data, nil
}

func (g *fakeGateway) Store(ctx context.Context, data []byte, epochs int) (string, error) {
	if g.down {
		return "", fmt.Errorf("gateway %v is down", g.name)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	blobID := fmt.Sprintf("%v-%v", g.name, len(g.blobs))
	g.blobs[blobID] = data
	return blobID, nil
}

func (g *fakeGateway) put(blobID string, data []byte) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.blobs[blobID] = data
}

// fakeKeyClient 在进程内模拟门限密钥服务器
type fakeKeyClient struct {
	masters []*seal.MasterKey
	infos   []seal.KeyServerInfo
	deny    atomic.Bool

	mu           sync.Mutex
	batchSizes   []int
	failDecrypt  map[string]bool
	decryptCalls atomic.Int32
}

func newFakeKeyClient(t *testing.T, n int) *fakeKeyClient {
	c := &fakeKeyClient{failDecrypt: map[string]bool{}}
	for i := 0; i < n; i++ {
		msk, err := seal.GenerateMasterKey(nil)
		if err != nil {
			t.Fatal(err)
		}
		c.masters = append(c.masters, msk)
		c.infos = append(c.infos, seal.KeyServerInfo{ObjectID: objectID(byte(0xe0 + i)), PublicKey: msk.PublicKey()})
	}
	return c
}

func (c *fakeKeyClient) FetchKeys(ctx context.Context, p seal.FetchKeysParams) error {
	c.mu.Lock()
	c.batchSizes = append(c.batchSizes, len(p.IDs))
	c.mu.Unlock()

	tx, err := authtx.ParseTransaction(p.TxBytes)
	if err != nil {
		return err
	}
	if len(tx.Commands) != len(p.IDs) {
		return fmt.Errorf("transaction covers %v ids, want %v", len(tx.Commands), len(p.IDs))
	}
	if c.deny.Load() {
		return errors.Wrap(errorcode.ErrorNoAccess, "3 servers denied access")
	}
	return nil
}

func (c *fakeKeyClient) Decrypt(ctx context.Context, p seal.DecryptParams) ([]byte, error) {
	c.decryptCalls.Add(1)
	obj, err := seal.ParseEncryptedObject(p.Data)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	fail := c.failDecrypt[obj.IDHex()]
	c.mu.Unlock()
	if fail {
		return nil, fmt.Errorf("corrupted payload")
	}

	keys := map[string][]byte{}
	for i, info := range c.infos {
		usk, err := c.masters[i].ExtractUserSecretKey(obj.FullID())
		if err != nil {
			return nil, err
		}
		keys[info.ObjectID] = usk
	}
	return seal.DecryptWithKeys(obj, keys)
}

func (c *fakeKeyClient) recordedBatchSizes() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int(nil), c.batchSizes...)
}

func (c *fakeKeyClient) encrypt(t *testing.T, keyID []byte, plaintext []byte) []byte {
	data, err := seal.Encrypt(seal.EncryptParams{
		PackageID:  testPackageID,
		ID:         keyID,
		KeyServers: c.infos,
		Threshold:  2,
		Data:       plaintext,
	})
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func answerPayload(surveyID, respondent, answer string) []byte {
	payload := survey.AnswerPayload{
		SurveyID:   surveyID,
		Respondent: respondent,
		Timestamp:  time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC).UnixMilli(),
		Answers: []survey.QuestionAnswer{
			{QuestionIndex: 0, QuestionText: "How often?", QuestionType: 0, Answer: answer},
		},
		Consent: true,
	}
	b, _ := json.Marshal(payload)
	return b
}

// decryptFixture 组装一个使用内存依赖的 DecryptService
type decryptFixture struct {
	wallet    *fakeWallet
	store     *kvstore.MemoryStore
	gateways  []*fakeGateway
	keyClient *fakeKeyClient
	cache     *AnswerCache
	service   *DecryptService
}

func newDecryptFixture(t *testing.T) *decryptFixture {
	f := &decryptFixture{
		wallet:    &fakeWallet{address: addressA},
		store:     kvstore.NewMemoryStore(),
		keyClient: newFakeKeyClient(t, 3),
		cache:     NewAnswerCache(0),
	}
	for i := 0; i < 3; i++ {
		f.gateways = append(f.gateways, newFakeGateway(fmt.Sprintf("gateway-%v", i)))
	}

	gateways := make([]storage.Gateway, 0, len(f.gateways))
	for _, g := range f.gateways {
		gateways = append(gateways, g)
	}
	blobService := NewBlobService(gateways)
	blobService.Timeout = time.Second

	f.service = &DecryptService{
		SessionKeyService: &SessionKeyService{Store: f.store, Wallet: f.wallet},
		AuthTxService:     &AuthTxService{PackageID: testPackageID},
		BlobService:       blobService,
		KeyClient:         f.keyClient,
		Cache:             f.cache,
		PackageID:         testPackageID,
		SessionTTLMin:     DefaultSessionKeyTTLMin,
	}
	return f
}

// addAnswer 加密一份答卷并放到全部网关上，返回 blob ID
func (f *decryptFixture) addAnswer(t *testing.T, nonce int, answer string) string {
	blobID := fmt.Sprintf("blob-%03d", nonce)
	data := f.keyClient.encrypt(t, keyIDFor(testSurveyID, nonce), answerPayload(testSurveyID, addressB, answer))
	for _, g := range f.gateways {
		g.put(blobID, data)
	}
	return blobID
}

func (f *decryptFixture) gatewayCalls() int {
	total := 0
	for _, g := range f.gateways {
		total += int(g.calls.Load())
	}
	return total
}

// fakeChain 在内存中保存链上对象
type fakeChain struct {
	objects map[string]*bcao.ObjectData
	fields  map[string][]*bcao.DynamicFieldInfo
	owned   map[string][]*bcao.ObjectData
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		objects: map[string]*bcao.ObjectData{},
		fields:  map[string][]*bcao.DynamicFieldInfo{},
		owned:   map[string][]*bcao.ObjectData{},
	}
}

func (c *fakeChain) GetObject(ctx context.Context, id string) (*bcao.ObjectData, error) {
	normalized, _ := hexutils.NormalizeObjectID(id)
	obj, ok := c.objects[normalized]
	if !ok {
		return nil, errorcode.ErrorNotFound
	}
	return obj, nil
}

func (c *fakeChain) GetDynamicFields(ctx context.Context, parentID string) ([]*bcao.DynamicFieldInfo, error) {
	normalized, _ := hexutils.NormalizeObjectID(parentID)
	return c.fields[normalized], nil
}

func (c *fakeChain) GetOwnedObjects(ctx context.Context, owner string, structType string) ([]*bcao.ObjectData, error) {
	normalized, _ := hexutils.NormalizeObjectID(owner)
	ret := []*bcao.ObjectData{}
	for _, obj := range c.owned[normalized] {
		if obj.Type == structType {
			ret = append(ret, obj)
		}
	}
	return ret, nil
}

func (c *fakeChain) QueryEvents(ctx context.Context, eventType string, limit int) ([]*bcao.EventData, error) {
	return nil, errorcode.ErrorNotImplemented
}

func (c *fakeChain) ExecuteTransaction(ctx context.Context, txBytes []byte, signatures []string) (*bcao.TransactionExecutionInfo, error) {
	return nil, errorcode.ErrorNotImplemented
}

func (c *fakeChain) DryRunTransaction(ctx context.Context, txBytes []byte) (*bcao.TransactionExecutionInfo, error) {
	return nil, errorcode.ErrorNotImplemented
}

func (c *fakeChain) put(obj *bcao.ObjectData) {
	c.objects[obj.ObjectID] = obj
	if obj.Owner != "" {
		c.owned[obj.Owner] = append(c.owned[obj.Owner], obj)
	}
}

func objectFromJSON(t *testing.T, id, owner, structType, fieldsJSON string) *bcao.ObjectData {
	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(fieldsJSON), &fields); err != nil {
		t.Fatal(err)
	}
	return &bcao.ObjectData{ObjectID: id, Owner: owner, Type: structType, Fields: fields}
}

// newSurveyChain 在链上放置一份问卷（创建者为 addressA，允许列表为 addressB）、一个订阅服务和 addressB 持有的订阅
func newSurveyChain(t *testing.T, subscribedAt time.Time) *fakeChain {
	chain := newFakeChain()
	chain.put(objectFromJSON(t, testSurveyID, "", testPackageID+"::survey::Survey", fmt.Sprintf(`{
		"id": {"id": %q},
		"creator": %q,
		"title": "Coffee habits",
		"questions": [],
		"allowlist": {"fields": {"contents": [%q]}},
		"reward_per_response": "10",
		"answer_count": "2",
		"created_at": "1700000000000"
	}`, testSurveyID, addressA, addressB)))

	chain.put(objectFromJSON(t, objectID(0xc2), "", testPackageID+"::subscription::Service", fmt.Sprintf(`{
		"id": {"id": %q},
		"survey_id": %q,
		"price": "5",
		"duration_ms": "3600000",
		"creator": %q
	}`, objectID(0xc2), testSurveyID, addressA)))

	chain.put(objectFromJSON(t, objectID(0xc1), addressB, testPackageID+"::subscription::Subscription", fmt.Sprintf(`{
		"id": {"id": %q},
		"service_id": %q,
		"created_at": "%d"
	}`, objectID(0xc1), objectID(0xc2), subscribedAt.UnixMilli())))

	for i, consent := range []bool{true, false} {
		fieldID := objectID(byte(0xd0 + i))
		chain.put(objectFromJSON(t, fieldID, "", "0x2::dynamic_field::Field<address, "+testPackageID+"::survey::Answer>", fmt.Sprintf(`{
			"id": {"id": %q},
			"name": %q,
			"value": {"fields": {
				"respondent": %q,
				"blob_id": "blob-%d",
				"seal_key_id": %q,
				"submitted_at": "%d",
				"consent_for_subscription": %v
			}}
		}`, fieldID, addressB, addressB, i, keyIDHex(testSurveyID, i), 1700000000000-int64(i)*1000, consent)))
		chain.fields[testSurveyID] = append(chain.fields[testSurveyID], &bcao.DynamicFieldInfo{
			ObjectID:   fieldID,
			ObjectType: "0x2::dynamic_field::Field<address, " + testPackageID + "::survey::Answer>",
		})
	}
	// 与答卷无关的动态字段
	chain.fields[testSurveyID] = append(chain.fields[testSurveyID], &bcao.DynamicFieldInfo{
		ObjectID:   objectID(0xdf),
		ObjectType: "0x2::dynamic_field::Field<u8, u64>",
	})

	return chain
}

func newSurveyServiceInfo(chain *fakeChain) *Info {
	return &Info{
		ChainCtx:  &chaincodectx.SuiChainCtx{PackageID: testPackageID},
		ChainBCAO: chain,
	}
}
