package xmr

import (
	"context"
	"errors"
	"net"
	"testing"

	walletinterfaces "github.com/kaigoh/walletadapter/wallet_interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/moneropay/go-monero/walletrpc"
)

type fakeRPC struct {
	balance, unlocked uint64
	height            uint64
	version           uint64
	address           string
	transferErr       error
	transportDown     bool
	nilIntegrated     bool

	transfers  []*walletrpc.TransferRequest
	integrated []*walletrpc.MakeIntegratedAddressRequest
	stores     int
}

var errDialRefused = &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}

func (f *fakeRPC) down() error {
	if f.transportDown {
		return errDialRefused
	}
	return nil
}

func (f *fakeRPC) CreateAddress(context.Context, *walletrpc.CreateAddressRequest) (*walletrpc.CreateAddressResponse, error) {
	if err := f.down(); err != nil {
		return nil, err
	}
	return &walletrpc.CreateAddressResponse{Address: f.address, AddressIndex: 1}, nil
}

func (f *fakeRPC) GetBalance(context.Context, *walletrpc.GetBalanceRequest) (*walletrpc.GetBalanceResponse, error) {
	if err := f.down(); err != nil {
		return nil, err
	}
	return &walletrpc.GetBalanceResponse{Balance: f.balance, UnlockedBalance: f.unlocked}, nil
}

func (f *fakeRPC) GetHeight(context.Context) (*walletrpc.GetHeightResponse, error) {
	if err := f.down(); err != nil {
		return nil, err
	}
	return &walletrpc.GetHeightResponse{Height: f.height}, nil
}

func (f *fakeRPC) GetVersion(context.Context) (*walletrpc.GetVersionResponse, error) {
	if err := f.down(); err != nil {
		return nil, err
	}
	return &walletrpc.GetVersionResponse{Version: f.version}, nil
}

func (f *fakeRPC) Transfer(_ context.Context, req *walletrpc.TransferRequest) (*walletrpc.TransferResponse, error) {
	f.transfers = append(f.transfers, req)
	if err := f.down(); err != nil {
		return nil, err
	}
	if f.transferErr != nil {
		return nil, f.transferErr
	}
	return &walletrpc.TransferResponse{TxHash: "txhash-" + req.Destinations[0].Address}, nil
}

func (f *fakeRPC) MakeIntegratedAddress(_ context.Context, req *walletrpc.MakeIntegratedAddressRequest) (*walletrpc.MakeIntegratedAddressResponse, error) {
	f.integrated = append(f.integrated, req)
	if f.nilIntegrated {
		return nil, nil
	}
	return &walletrpc.MakeIntegratedAddressResponse{IntegratedAddress: "i" + req.StandardAddress}, nil
}

func (f *fakeRPC) Store(context.Context) error {
	f.stores++
	return f.down()
}

func newTestAdapter(t *testing.T, rpc *fakeRPC) (*WalletRPC, walletinterfaces.Currency) {
	t.Helper()
	c, err := walletinterfaces.NewCurrency("XMR", "Monero", 12)
	require.NoError(t, err)
	s, err := Schema().Resolve(map[string]string{"account_index": "2", "rpc_rate": "1000"})
	require.NoError(t, err)
	return newWithClient(c, s, "http://127.0.0.1:18082/json_rpc", rpc), c
}

func TestLockedUntilFirstSuccessfulCall(t *testing.T) {
	rpc := &fakeRPC{height: 3100000}
	w, _ := newTestAdapter(t, rpc)
	ctx := context.Background()

	assert.True(t, w.IsLocked(ctx))
	require.NoError(t, w.RunMaintenance(ctx))
	assert.False(t, w.IsLocked(ctx))
	assert.Equal(t, 1, rpc.stores)

	rpc.transportDown = true
	err := w.RunMaintenance(ctx)
	require.ErrorIs(t, err, walletinterfaces.ErrBackendUnavailable)
	assert.True(t, w.IsLocked(ctx))
}

func TestBalances(t *testing.T) {
	rpc := &fakeRPC{balance: 1000, unlocked: 600}
	w, c := newTestAdapter(t, rpc)
	ctx := context.Background()

	total, err := w.HotBalance(ctx, c)
	require.NoError(t, err)
	locked, err := w.HotLockedBalance(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, walletinterfaces.Amount(1000), total)
	assert.Equal(t, walletinterfaces.Amount(400), locked)

	// Unlocked briefly above total must not underflow.
	rpc.unlocked = 1200
	locked, err = w.HotLockedBalance(ctx, c)
	require.NoError(t, err)
	assert.Zero(t, locked)

	rpc.transportDown = true
	_, err = w.HotBalance(ctx, c)
	require.ErrorIs(t, err, walletinterfaces.ErrBackendUnavailable)
}

func TestNewDepositAddress(t *testing.T) {
	rpc := &fakeRPC{address: "84subaddress"}
	w, c := newTestAdapter(t, rpc)

	addr, err := w.NewDepositAddress(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, "84subaddress", addr.Address)
	assert.Equal(t, walletinterfaces.AddressTypeDeposit, addr.Type)

	rpc.address = ""
	_, err = w.NewDepositAddress(context.Background(), c)
	require.ErrorIs(t, err, walletinterfaces.ErrBackendUnavailable)
}

func TestBlockHeightUnknownIsZero(t *testing.T) {
	rpc := &fakeRPC{height: 42, transportDown: true}
	w, c := newTestAdapter(t, rpc)
	assert.Zero(t, w.BlockHeight(context.Background(), c))

	rpc.transportDown = false
	assert.Equal(t, uint64(42), w.BlockHeight(context.Background(), c))
}

func TestBackendVersion(t *testing.T) {
	rpc := &fakeRPC{version: 1<<16 | 23}
	w, _ := newTestAdapter(t, rpc)
	v, err := w.BackendVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.23", v)

	rpc.transportDown = true
	_, err = w.BackendVersion(context.Background())
	require.ErrorIs(t, err, walletinterfaces.ErrBackendUnavailable)
}

func TestExecuteWithdrawalsThroughWalletRPC(t *testing.T) {
	rpc := &fakeRPC{}
	w, c := newTestAdapter(t, rpc)

	plain, err := walletinterfaces.NewWithdrawalAddress(c, "4plain", "", "u1")
	require.NoError(t, err)
	withID, err := walletinterfaces.NewWithdrawalAddress(c, "4withid", "0123456789abcdef", "u2")
	require.NoError(t, err)
	w1, err := walletinterfaces.NewWithdrawal(c, 500, plain)
	require.NoError(t, err)
	w2, err := walletinterfaces.NewWithdrawal(c, 300, withID)
	require.NoError(t, err)

	result, err := walletinterfaces.ExecuteWithdrawals(context.Background(), w, []*walletinterfaces.Withdrawal{w1, w2})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Done())
	assert.Equal(t, "txhash-4plain", w1.TxID)
	assert.Equal(t, "txhash-i4withid", w2.TxID)

	require.Len(t, rpc.transfers, 2)
	assert.Equal(t, uint64(2), rpc.transfers[0].AccountIndex)
	assert.Equal(t, uint64(500), rpc.transfers[0].Destinations[0].Amount)
	require.Len(t, rpc.integrated, 1)
	assert.Equal(t, "0123456789abcdef", rpc.integrated[0].PaymentId)
}

func TestSendFailureIsRecorded(t *testing.T) {
	rpc := &fakeRPC{transferErr: errors.New("not enough money")}
	w, c := newTestAdapter(t, rpc)
	require.NoError(t, w.RunMaintenance(context.Background()))

	addr, err := walletinterfaces.NewWithdrawalAddress(c, "4plain", "", "")
	require.NoError(t, err)
	wd, err := walletinterfaces.NewWithdrawal(c, 1, addr)
	require.NoError(t, err)

	_, err = walletinterfaces.ExecuteWithdrawals(context.Background(), w, []*walletinterfaces.Withdrawal{wd})
	require.EqualError(t, err, "not enough money")
	assert.Equal(t, walletinterfaces.StatusFailed, wd.Status)
	assert.False(t, w.IsLocked(context.Background()), "rpc errors do not lock the wallet")
}

func TestEmptyIntegratedAddressFailsWithoutTransfer(t *testing.T) {
	rpc := &fakeRPC{nilIntegrated: true}
	w, c := newTestAdapter(t, rpc)

	addr, err := walletinterfaces.NewWithdrawalAddress(c, "4withid", "0123456789abcdef", "")
	require.NoError(t, err)
	wd, err := walletinterfaces.NewWithdrawal(c, 1, addr)
	require.NoError(t, err)

	_, err = walletinterfaces.ExecuteWithdrawals(context.Background(), w, []*walletinterfaces.Withdrawal{wd})
	require.Error(t, err)
	assert.Equal(t, walletinterfaces.StatusFailed, wd.Status)
	assert.Contains(t, wd.Error, "no integrated address")
	assert.NotContains(t, wd.Error, "panicked")
	assert.Empty(t, rpc.transfers)
}

func TestExtraFieldLabel(t *testing.T) {
	w, c := newTestAdapter(t, &fakeRPC{})
	label, ok := w.ExtraFieldLabel(c)
	assert.True(t, ok)
	assert.Equal(t, "Payment ID", label)

	again, _ := w.ExtraFieldLabel(c)
	assert.Equal(t, label, again)

	other, err := walletinterfaces.NewCurrency("WOW", "Wownero", 11)
	require.NoError(t, err)
	_, ok = w.ExtraFieldLabel(other)
	assert.False(t, ok)
}

func TestDescriptionUsesEndpoint(t *testing.T) {
	c, err := walletinterfaces.NewCurrency("XMR", "Monero", 12)
	require.NoError(t, err)
	s, err := Schema().Resolve(map[string]string{"ip": "[::1]", "port": "28088", "transport": "https"})
	require.NoError(t, err)
	w := NewWalletRPC(c, s)
	assert.Equal(t, "monero-wallet-rpc at https://[::1]:28088/json_rpc", w.Description())
}
