package server

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hdcreasoner/internal/config"
	"hdcreasoner/internal/session"
)

func newTestServer(t *testing.T) *ReasonerServer {
	t.Helper()
	s := session.New(nil, config.DefaultThresholds())
	return NewReasonerServer(s)
}

func TestHandleLoadTheoryThenProve(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	_, loadResp, err := srv.handleLoadTheory(ctx, nil, LoadTheoryRequest{
		Source: "isA Rex Dog\nisA Dog Mammal\n",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, loadResp.FactCount)

	_, proveResp, err := srv.handleProve(ctx, nil, ProveRequest{Goal: "isA Rex Mammal"})
	require.NoError(t, err)
	assert.True(t, proveResp.Valid)
}

func TestHandleAddFactAndQuery(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	_, addResp, err := srv.handleAddFact(ctx, nil, AddFactRequest{Statement: "isA Alice Student"})
	require.NoError(t, err)
	assert.Equal(t, "isA Alice Student", addResp.Fact)

	_, queryResp, err := srv.handleQuery(ctx, nil, QueryRequest{Pattern: "isA ?who Student"})
	require.NoError(t, err)
	require.True(t, queryResp.Success)
	require.Len(t, queryResp.Results, 1)
	assert.Equal(t, "Alice", queryResp.Results[0].Bindings["who"])
}

func TestHandleAddRuleAndForwardChain(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	_, _, err := srv.handleAddFact(ctx, nil, AddFactRequest{Statement: "isA Tweety Bird"})
	require.NoError(t, err)

	_, ruleResp, err := srv.handleAddRule(ctx, nil, AddRuleRequest{
		Statement: "(rule canFlyRule (isA ?x Bird) (canFly ?x))",
	})
	require.NoError(t, err)
	assert.Equal(t, "canFlyRule", ruleResp.Name)

	_, chainResp, err := srv.handleForwardChain(ctx, nil, ForwardChainRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, chainResp.Added)
}

func TestHandleAbduce(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	_, _, err := srv.handleLoadTheory(ctx, nil, LoadTheoryRequest{
		Source: "causes Fire Smoke\ncauses Electrical Fire\n",
	})
	require.NoError(t, err)

	_, resp, err := srv.handleAbduce(ctx, nil, AbduceRequest{Observation: "Smoke"})
	require.NoError(t, err)
	require.Len(t, resp.Explanations, 2)
	assert.Equal(t, "Fire", resp.Explanations[0].Hypothesis)
}

func TestHandleSnapshotSaveAndLoad(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	path := t.TempDir() + "/snap.db"

	_, _, err := srv.handleLoadTheory(ctx, nil, LoadTheoryRequest{Source: "isA Rex Dog\n"})
	require.NoError(t, err)

	_, saveResp, err := srv.handleSnapshotSave(ctx, nil, SnapshotSaveRequest{Path: path})
	require.NoError(t, err)
	assert.Equal(t, path, saveResp.Path)

	fresh := newTestServer(t)
	_, loadResp, err := fresh.handleSnapshotLoad(ctx, nil, SnapshotLoadRequest{Path: path})
	require.NoError(t, err)
	assert.Equal(t, 1, loadResp.FactCount)
}

func TestHandleStats(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	_, _, err := srv.handleProve(ctx, nil, ProveRequest{Goal: "isA Rex Dog"})
	require.NoError(t, err)

	_, resp, err := srv.handleStats(ctx, nil, StatsRequest{})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), resp.ProveCalls)
}

func TestHandleProveRejectsEmptyGoal(t *testing.T) {
	srv := newTestServer(t)
	_, _, err := srv.handleProve(context.Background(), nil, ProveRequest{Goal: ""})
	assert.Error(t, err)
}
