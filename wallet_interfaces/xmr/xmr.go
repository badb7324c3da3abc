package xmr

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	walletinterfaces "github.com/kaigoh/walletadapter/wallet_interfaces"
	"gitlab.com/moneropay/go-monero/walletrpc"
	"golang.org/x/time/rate"
)

const BackendName = "xmr"

// rpcClient is the subset of walletrpc.Client the adapter uses.
type rpcClient interface {
	CreateAddress(ctx context.Context, req *walletrpc.CreateAddressRequest) (*walletrpc.CreateAddressResponse, error)
	GetBalance(ctx context.Context, req *walletrpc.GetBalanceRequest) (*walletrpc.GetBalanceResponse, error)
	GetHeight(ctx context.Context) (*walletrpc.GetHeightResponse, error)
	GetVersion(ctx context.Context) (*walletrpc.GetVersionResponse, error)
	Transfer(ctx context.Context, req *walletrpc.TransferRequest) (*walletrpc.TransferResponse, error)
	MakeIntegratedAddress(ctx context.Context, req *walletrpc.MakeIntegratedAddressRequest) (*walletrpc.MakeIntegratedAddressResponse, error)
	Store(ctx context.Context) error
}

type WalletRPC struct {
	currency walletinterfaces.Currency
	client   rpcClient
	endpoint string
	account  uint64
	limiter  *rate.Limiter

	// reachable flips on every RPC; a wallet is locked until a call succeeds.
	reachable atomic.Bool
}

func Schema() walletinterfaces.Schema {
	return walletinterfaces.Schema{
		{
			ID:          "ip",
			Name:        "IP address for the wallet",
			Type:        walletinterfaces.FieldString,
			Description: "Host running monero-wallet-rpc. Use 127.0.0.1 for the same machine; enclose IPv6 in brackets, e.g. [::1].",
			Default:     "127.0.0.1",
			Required:    true,
			Validate:    "tcp_host",
		},
		{
			ID:          "port",
			Name:        "TCP port for the wallet",
			Type:        walletinterfaces.FieldNumber,
			Description: "Port where monero-wallet-rpc listens for connections.",
			Default:     "18082",
			Min:         walletinterfaces.Int64(0),
			Max:         walletinterfaces.Int64(65535),
			Step:        1,
		},
		{
			ID:          "transport",
			Name:        "Transport",
			Type:        walletinterfaces.FieldSelect,
			Description: "Use https when the wallet RPC is behind TLS.",
			Default:     "http",
			Options: []walletinterfaces.Option{
				{Value: "http", Label: "Plain HTTP"},
				{Value: "https", Label: "HTTPS"},
			},
		},
		{
			ID:          "username",
			Name:        "Username",
			Type:        walletinterfaces.FieldString,
			Description: "RPC login user name.",
		},
		{
			ID:          "password",
			Name:        "Password",
			Type:        walletinterfaces.FieldSecret,
			Description: "RPC login password.",
		},
		{
			ID:          "account_index",
			Name:        "Account index",
			Type:        walletinterfaces.FieldNumber,
			Description: "Wallet account used for deposits, balances and withdrawals.",
			Default:     "0",
			Min:         walletinterfaces.Int64(0),
		},
		{
			ID:          "rpc_rate",
			Name:        "RPC calls per second",
			Type:        walletinterfaces.FieldNumber,
			Description: "Upper bound on calls made to the wallet RPC.",
			Default:     "10",
			Min:         walletinterfaces.Int64(1),
			Max:         walletinterfaces.Int64(1000),
		},
	}
}

func Backend() walletinterfaces.Backend {
	return walletinterfaces.Backend{
		Name:   BackendName,
		Schema: Schema(),
		Factory: func(c walletinterfaces.Currency, s walletinterfaces.Settings) (walletinterfaces.Wallet, error) {
			return NewWalletRPC(c, s), nil
		},
	}
}

func NewWalletRPC(c walletinterfaces.Currency, s walletinterfaces.Settings) *WalletRPC {
	endpoint := fmt.Sprintf("%s://%s/json_rpc", s.String("transport"), walletinterfaces.HostPort(s.String("ip"), s.Int("port")))

	headers := map[string]string{}
	user, password := s.String("username"), s.String("password")
	if user != "" || password != "" {
		token := base64.StdEncoding.EncodeToString([]byte(user + ":" + password))
		headers["Authorization"] = "Basic " + token
	}

	client := walletrpc.New(walletrpc.Config{
		Address:       endpoint,
		CustomHeaders: headers,
		Client:        &http.Client{Timeout: 30 * time.Second},
	})
	return newWithClient(c, s, endpoint, client)
}

func newWithClient(c walletinterfaces.Currency, s walletinterfaces.Settings, endpoint string, client rpcClient) *WalletRPC {
	perSecond := s.Int("rpc_rate")
	if perSecond <= 0 {
		perSecond = 10
	}
	return &WalletRPC{
		currency: c,
		client:   client,
		endpoint: endpoint,
		account:  uint64(s.Int("account_index")),
		limiter:  rate.NewLimiter(rate.Limit(perSecond), int(perSecond)),
	}
}

func (w *WalletRPC) Currency() walletinterfaces.Currency { return w.currency }

func (w *WalletRPC) Description() string {
	return "monero-wallet-rpc at " + w.endpoint
}

func (w *WalletRPC) IsLocked(context.Context) bool {
	return !w.reachable.Load()
}

func (w *WalletRPC) NewDepositAddress(ctx context.Context, c walletinterfaces.Currency) (walletinterfaces.Address, error) {
	var resp *walletrpc.CreateAddressResponse
	err := w.call(ctx, func(ctx context.Context) (err error) {
		resp, err = w.client.CreateAddress(ctx, &walletrpc.CreateAddressRequest{AccountIndex: w.account})
		return err
	})
	if err != nil {
		return walletinterfaces.Address{}, walletinterfaces.Unavailable("create_address", err)
	}
	if resp == nil || strings.TrimSpace(resp.Address) == "" {
		return walletinterfaces.Address{}, walletinterfaces.Unavailable("create_address", errors.New("wallet rpc returned empty address"))
	}
	return walletinterfaces.NewDepositAddress(c, resp.Address), nil
}

func (w *WalletRPC) balance(ctx context.Context) (*walletrpc.GetBalanceResponse, error) {
	var resp *walletrpc.GetBalanceResponse
	err := w.call(ctx, func(ctx context.Context) (err error) {
		resp, err = w.client.GetBalance(ctx, &walletrpc.GetBalanceRequest{AccountIndex: w.account})
		return err
	})
	if err != nil {
		return nil, walletinterfaces.Unavailable("get_balance", err)
	}
	if resp == nil {
		return nil, walletinterfaces.Unavailable("get_balance", errors.New("empty response"))
	}
	return resp, nil
}

func (w *WalletRPC) HotBalance(ctx context.Context, _ walletinterfaces.Currency) (walletinterfaces.Amount, error) {
	resp, err := w.balance(ctx)
	if err != nil {
		return 0, err
	}
	return walletinterfaces.Amount(resp.Balance), nil
}

func (w *WalletRPC) HotLockedBalance(ctx context.Context, _ walletinterfaces.Currency) (walletinterfaces.Amount, error) {
	resp, err := w.balance(ctx)
	if err != nil {
		return 0, err
	}
	return walletinterfaces.LockedPortion(walletinterfaces.Amount(resp.Balance), walletinterfaces.Amount(resp.UnlockedBalance)), nil
}

// Send transfers to a single destination. A payment ID in the address extra
// field is folded into an integrated address first.
func (w *WalletRPC) Send(ctx context.Context, wd walletinterfaces.Withdrawal) (string, error) {
	dest := wd.Address.Address
	if wd.Address.Extra != "" {
		var integrated *walletrpc.MakeIntegratedAddressResponse
		err := w.call(ctx, func(ctx context.Context) (err error) {
			integrated, err = w.client.MakeIntegratedAddress(ctx, &walletrpc.MakeIntegratedAddressRequest{
				StandardAddress: dest,
				PaymentId:       wd.Address.Extra,
			})
			return err
		})
		if err != nil {
			return "", fmt.Errorf("payment id %q: %w", wd.Address.Extra, err)
		}
		if integrated == nil || integrated.IntegratedAddress == "" {
			return "", fmt.Errorf("payment id %q: wallet rpc returned no integrated address", wd.Address.Extra)
		}
		dest = integrated.IntegratedAddress
	}

	var resp *walletrpc.TransferResponse
	err := w.call(ctx, func(ctx context.Context) (err error) {
		resp, err = w.client.Transfer(ctx, &walletrpc.TransferRequest{
			Destinations: []walletrpc.Destination{{Amount: uint64(wd.Amount), Address: dest}},
			AccountIndex: w.account,
		})
		return err
	})
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", errors.New("wallet rpc returned empty transfer response")
	}
	return resp.TxHash, nil
}

func (w *WalletRPC) BlockHeight(ctx context.Context, _ walletinterfaces.Currency) uint64 {
	var resp *walletrpc.GetHeightResponse
	err := w.call(ctx, func(ctx context.Context) (err error) {
		resp, err = w.client.GetHeight(ctx)
		return err
	})
	if err != nil || resp == nil {
		return 0
	}
	return resp.Height
}

// BackendVersion renders wallet-rpc's packed version (major<<16 | minor).
func (w *WalletRPC) BackendVersion(ctx context.Context) (string, error) {
	var resp *walletrpc.GetVersionResponse
	err := w.call(ctx, func(ctx context.Context) (err error) {
		resp, err = w.client.GetVersion(ctx)
		return err
	})
	if err != nil {
		return "", walletinterfaces.Unavailable("get_version", err)
	}
	if resp == nil {
		return "", walletinterfaces.Unavailable("get_version", errors.New("empty response"))
	}
	return fmt.Sprintf("%d.%d", resp.Version>>16, resp.Version&0xffff), nil
}

func (w *WalletRPC) ExtraFieldLabel(c walletinterfaces.Currency) (string, bool) {
	if strings.EqualFold(c.Symbol, "XMR") {
		return "Payment ID", true
	}
	return "", false
}

// RunMaintenance probes the wallet, which refreshes the lock state, and
// asks it to persist its cache to disk.
func (w *WalletRPC) RunMaintenance(ctx context.Context) error {
	err := w.call(ctx, func(ctx context.Context) error {
		_, err := w.client.GetHeight(ctx)
		return err
	})
	if err != nil {
		return walletinterfaces.Unavailable("get_height", err)
	}
	if err := w.call(ctx, w.client.Store); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	return nil
}

// call throttles fn and tracks reachability. Transport failures mark the
// wallet locked; an RPC level error still proves the wallet is up.
func (w *WalletRPC) call(ctx context.Context, fn func(context.Context) error) error {
	if err := w.limiter.Wait(ctx); err != nil {
		return err
	}
	err := fn(ctx)
	w.reachable.Store(err == nil || !isTransportError(err))
	return err
}

func isTransportError(err error) bool {
	var netErr net.Error
	var urlErr *url.Error
	return errors.As(err, &netErr) || errors.As(err, &urlErr) ||
		errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
