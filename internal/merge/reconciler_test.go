package merge

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/juliodz03/websitetmdt-client/internal/domain"
)

type mockMergeClient struct {
	m      sync.Mutex
	merged *domain.Cart
	err    error
	calls  []string
}

func (m *mockMergeClient) MergeCart(_ context.Context, sessionID string) (*domain.Cart, error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.calls = append(m.calls, sessionID)
	if m.err != nil {
		return nil, m.err
	}
	c := m.merged.Clone()
	return &c, nil
}

type mockInstaller struct {
	m         sync.Mutex
	installed *domain.Cart
	err       error
}

func (m *mockInstaller) SetCart(_ context.Context, cart *domain.Cart) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	m.installed = cart
	return nil
}

func TestMerge_InstallsServerResult(t *testing.T) {
	client := &mockMergeClient{merged: &domain.Cart{
		Items: []domain.LineItem{
			{ProductID: "p1", VariantID: "v1", Quantity: 3, UnitPrice: 100000},
		},
		TotalAmount: 300000,
	}}
	installer := &mockInstaller{}

	sut := NewReconciler(client, zap.NewNop())
	merged, err := sut.Merge(context.Background(), "session_1_abc", installer)
	require.NoError(t, err)
	assert.Equal(t, []string{"session_1_abc"}, client.calls)
	assert.Equal(t, 3, merged.Items[0].Quantity)
	require.NotNil(t, installer.installed)
	assert.Equal(t, int64(300000), installer.installed.TotalAmount)
}

func TestMerge_RepeatableWithSameSessionID(t *testing.T) {
	// The server-side merge is idempotent; the reconciler just installs
	// whatever it returns, both times.
	client := &mockMergeClient{merged: &domain.Cart{
		Items:       []domain.LineItem{{ProductID: "p1", VariantID: "v1", Quantity: 2, UnitPrice: 100}},
		TotalAmount: 200,
	}}
	installer := &mockInstaller{}
	sut := NewReconciler(client, zap.NewNop())

	first, err := sut.Merge(context.Background(), "session_1_abc", installer)
	require.NoError(t, err)
	second, err := sut.Merge(context.Background(), "session_1_abc", installer)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestMerge_ServerFailureIsUnavailable(t *testing.T) {
	client := &mockMergeClient{err: fmt.Errorf("upstream 502")}
	installer := &mockInstaller{}
	sut := NewReconciler(client, zap.NewNop())

	_, err := sut.Merge(context.Background(), "session_1_abc", installer)
	require.ErrorIs(t, err, domain.ErrUnavailable)
	assert.Nil(t, installer.installed, "nothing installed on failure")
}

func TestMerge_InstallFailurePropagates(t *testing.T) {
	client := &mockMergeClient{merged: &domain.Cart{}}
	installer := &mockInstaller{err: fmt.Errorf("inconsistent")}
	sut := NewReconciler(client, zap.NewNop())

	_, err := sut.Merge(context.Background(), "session_1_abc", installer)
	assert.Error(t, err)
}
