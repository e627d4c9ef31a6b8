package firewall

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swapnilsparsh/devsVPN/netlock/service/firewall/types"
)

type fakeEngine struct {
	mutex sync.Mutex

	inits, starts, stops int
	cleanups             int
	removedNames         []string
	lastDesc             ServiceDescriptor
	nextID               uint64
	rules                map[uint64]Rule
	added, removed       int

	failStart    bool
	failAddAfter int // fail AddRule after this many successful calls (0 = never)
	failRemove   map[uint64]bool
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{rules: make(map[uint64]Rule), failRemove: make(map[uint64]bool)}
}

func (e *fakeEngine) Init(string) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.inits++
	return nil
}

func (e *fakeEngine) Start(desc ServiceDescriptor) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	if e.failStart {
		return errors.New("start failed")
	}
	e.starts++
	e.lastDesc = desc
	return nil
}

func (e *fakeEngine) Stop() error {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.stops++
	return nil
}

func (e *fakeEngine) AddRule(rule Rule) (uint64, error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	if e.failAddAfter > 0 && e.added >= e.failAddAfter {
		return 0, errors.New("add failed")
	}
	e.added++
	e.nextID++
	e.rules[e.nextID] = rule
	return e.nextID, nil
}

func (e *fakeEngine) RemoveRule(id uint64) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.removed++
	if e.failRemove[id] {
		return fmt.Errorf("remove %d failed", id)
	}
	e.removedNames = append(e.removedNames, e.rules[id].Name)
	delete(e.rules, id)
	return nil
}

func (e *fakeEngine) Cleanup() error {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.cleanups++
	return nil
}

func (e *fakeEngine) LastError() string {
	return "native diagnostic"
}

var testRule = Rule{Name: "test", Action: ActionBlock, Conditions: []Condition{{Field: FieldRemotePort, Match: MatchEqual, Value: "53"}}}

func TestExpandLayers(t *testing.T) {
	assert.Len(t, ExpandLayers("all"), 6)
	assert.Equal(t, []string{LayerRecvAcceptV4, LayerConnectV4, LayerFlowEstablishedV4}, ExpandLayers("ipv4"))
	assert.Equal(t, []string{LayerRecvAcceptV6, LayerConnectV6, LayerFlowEstablishedV6}, ExpandLayers("ipv6"))
	assert.Equal(t, []string{"custom_layer"}, ExpandLayers("custom_layer"))
}

func TestWithLayerCopiesConditions(t *testing.T) {
	r := testRule.WithLayer(LayerConnectV4)
	r.Conditions[0].Value = "80"

	assert.Equal(t, LayerConnectV4, r.Layer)
	assert.Equal(t, "53", testRule.Conditions[0].Value)
	assert.Empty(t, testRule.Layer)
}

func TestEndToEndStartStopOnce(t *testing.T) {
	e := newFakeEngine()
	c := NewController(e, "svc")

	require.NoError(t, c.AddRuleGroup("block-all", "all", testRule))
	require.NoError(t, c.AddRuleGroup("allow-vpn", "ipv4", testRule))
	assert.Equal(t, 2, c.Count())
	assert.True(t, c.IsRunning())
	assert.Equal(t, ServiceDescriptor{Description: "svc", Weight: WeightMax}, e.lastDesc)

	removed, err := c.RemoveRuleGroup("block-all")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, 0, e.stops)

	removed, err = c.RemoveRuleGroup("allow-vpn")
	require.NoError(t, err)
	assert.True(t, removed)

	assert.Equal(t, 1, e.starts)
	assert.Equal(t, 1, e.stops)
	assert.Equal(t, 9, e.added)
	assert.Equal(t, 9, e.removed)
	assert.Empty(t, e.rules)
	assert.False(t, c.IsRunning())
}

func TestRuleLayersSubstituted(t *testing.T) {
	e := newFakeEngine()
	c := NewController(e, "svc")
	require.NoError(t, c.AddRuleGroup("g", "ipv6", testRule))

	var layers []string
	for id := uint64(1); id <= 3; id++ {
		layers = append(layers, e.rules[id].Layer)
	}
	assert.Equal(t, ExpandLayers("ipv6"), layers)
}

func TestDuplicateCodeRejected(t *testing.T) {
	e := newFakeEngine()
	c := NewController(e, "svc")
	require.NoError(t, c.AddRuleGroup("g", "literal", testRule))
	assert.Error(t, c.AddRuleGroup("g", "literal", testRule))
	assert.Equal(t, 1, e.added)
}

func TestEngineStartError(t *testing.T) {
	e := newFakeEngine()
	e.failStart = true
	c := NewController(e, "svc")

	err := c.AddRuleGroup("g", "all", testRule)
	var startErr *types.EngineStartError
	require.ErrorAs(t, err, &startErr)
	assert.Equal(t, "native diagnostic", startErr.Diagnostic())
	assert.False(t, c.IsRunning())
	assert.Equal(t, 0, c.Count())
	assert.Equal(t, 0, e.added)
}

func TestRuleAddErrorDoesNotRollBack(t *testing.T) {
	e := newFakeEngine()
	e.failAddAfter = 2
	c := NewController(e, "svc")

	err := c.AddRuleGroup("g", "all", testRule)
	var addErr *types.RuleAddError
	require.ErrorAs(t, err, &addErr)
	assert.Equal(t, "g", addErr.Code())
	assert.Equal(t, LayerConnectV4, addErr.Layer())
	assert.Equal(t, 2, addErr.AddedBeforeFailure())

	assert.Len(t, e.rules, 2)
	assert.Equal(t, 0, e.removed)
	assert.Equal(t, 0, c.Count())
	assert.True(t, c.IsRunning())

	require.NoError(t, c.StopIfIdle())
	assert.False(t, c.IsRunning())
	assert.Equal(t, 1, e.stops)
}

func TestRemoveUnknownGroup(t *testing.T) {
	c := NewController(newFakeEngine(), "svc")
	removed, err := c.RemoveRuleGroup("nope")
	assert.False(t, removed)
	assert.NoError(t, err)
}

func TestRemoveIsBestEffort(t *testing.T) {
	e := newFakeEngine()
	c := NewController(e, "svc")
	require.NoError(t, c.AddRuleGroup("g", "ipv4", testRule))
	e.failRemove[1] = true

	removed, err := c.RemoveRuleGroup("g")
	assert.True(t, removed)
	var removeErr *types.RuleRemoveError
	require.ErrorAs(t, err, &removeErr)
	assert.Equal(t, uint64(1), removeErr.ID())

	assert.Equal(t, 3, e.removed)
	assert.Equal(t, 0, c.Count())
	assert.Equal(t, 1, e.stops)
}

func TestRemoveAll(t *testing.T) {
	e := newFakeEngine()
	c := NewController(e, "svc")
	require.NoError(t, c.AddRuleGroup("a", "ipv4", testRule))
	require.NoError(t, c.AddRuleGroup("b", "ipv6", testRule))
	assert.Equal(t, []string{"a", "b"}, c.Codes())

	require.NoError(t, c.RemoveAll())
	assert.Empty(t, c.Codes())
	assert.Equal(t, 1, e.stops)
}

func TestRemoveAllReverseOrderOfAddition(t *testing.T) {
	e := newFakeEngine()
	c := NewController(e, "svc")
	for _, code := range []string{"zz-block", "aa-permit", "mm-permit"} {
		r := testRule
		r.Name = code
		require.NoError(t, c.AddRuleGroup(code, "custom_layer", r))
	}

	require.NoError(t, c.RemoveAll())
	assert.Equal(t, []string{"mm-permit", "aa-permit", "zz-block"}, e.removedNames)
}

func TestCleanup(t *testing.T) {
	e := newFakeEngine()
	c := NewController(e, "svc")
	require.NoError(t, c.Cleanup())
	assert.Equal(t, 1, e.inits)
	assert.Equal(t, 1, e.cleanups)
	assert.False(t, c.IsRunning())

	require.NoError(t, c.AddRuleGroup("a", "ipv4", testRule))
	assert.Error(t, c.Cleanup())
	assert.Equal(t, 1, e.cleanups)
}

func TestConcurrentGroupsStartStopOnce(t *testing.T) {
	e := newFakeEngine()
	c := NewController(e, "svc")

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			code := fmt.Sprintf("g%d", i)
			assert.NoError(t, c.AddRuleGroup(code, "ipv4", testRule))
		}(i)
	}
	wg.Wait()
	assert.Equal(t, n, c.Count())

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := c.RemoveRuleGroup(fmt.Sprintf("g%d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, e.starts)
	assert.Equal(t, 1, e.stops)
	assert.Equal(t, 3*n, e.added)
	assert.Equal(t, 3*n, e.removed)
}
