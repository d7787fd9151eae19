package cli

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/mrz1836/caelus/internal/config"
)

const (
	testPassword = "correct horse"
	testPhrase   = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	testAddress  = "GDCXQXQYMW3QRE4K76AWDVLTABSJMZR3DKQQQNHDS3OFM2DJULDGVUMV"
	testSecret   = "SBPLAC553TYGSCCIRGUKXEKVK2AWL5OEKPGLQXTQQENK5VXW3JP4CSMI"
	otherAddress = "GAB2CB576PHBBPQ5ODORRZ2LYCMWPZGWGCN2KDK7DXOIMZASKUY3QZ6Q"
	otherSecret  = "SAAACAQDAQCQMBYIBEFAWDANBYHRAEISCMKBKFQXDAMRUGY4DUPB6NKI"
)

func TestMain(m *testing.M) {
	keyring.MockInit()
	os.Exit(m.Run())
}

// withMockPrompts replaces prompt functions for testing and restores on cleanup.
// lines answers promptLine calls in order.
func withMockPrompts(t *testing.T, password string, confirm bool, lines ...string) *[]string {
	t.Helper()
	origPW := promptPasswordFn
	origNewPW := promptNewPasswordFn
	origLine := promptLineFn
	origConfirm := promptConfirmFn
	t.Cleanup(func() {
		promptPasswordFn = origPW
		promptNewPasswordFn = origNewPW
		promptLineFn = origLine
		promptConfirmFn = origConfirm
	})

	var asked []string
	promptPasswordFn = func(prompt string) (string, error) {
		asked = append(asked, prompt)
		return password, nil
	}
	promptNewPasswordFn = func() (string, error) {
		asked = append(asked, "new password")
		return password, nil
	}
	promptLineFn = func(prompt string) (string, error) {
		asked = append(asked, prompt)
		if len(lines) == 0 {
			return "", nil
		}
		line := lines[0]
		lines = lines[1:]
		return line, nil
	}
	promptConfirmFn = func(question string) bool {
		asked = append(asked, question)
		return confirm
	}
	return &asked
}

// horizonStub is a minimal Horizon and Friendbot.
type horizonStub struct {
	mu        sync.Mutex
	funded    map[string]bool
	submitted int
	server    *httptest.Server
}

func newHorizonStub(t *testing.T) *horizonStub {
	t.Helper()
	h := &horizonStub{funded: map[string]bool{}}
	h.server = httptest.NewServer(http.HandlerFunc(h.serve))
	t.Cleanup(h.server.Close)
	return h
}

func (h *horizonStub) serve(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch {
	case r.URL.Path == "/friendbot":
		h.funded[r.URL.Query().Get("addr")] = true
		_, _ = w.Write([]byte(`{"hash":"fundhash"}`))

	case r.URL.Path == "/transactions" && r.Method == http.MethodPost:
		h.submitted++
		_, _ = w.Write([]byte(`{"hash":"txhash","ledger":77,"successful":true,"fee_charged":"100"}`))

	case strings.HasSuffix(r.URL.Path, "/payments"):
		_, _ = w.Write([]byte(`{"_embedded":{"records":[{
			"id":"1","type":"payment","type_i":1,"created_at":"2024-05-01T10:00:00Z","transaction_hash":"abc",
			"transaction_successful":true,"asset_type":"native","from":"` + otherAddress + `",
			"to":"` + testAddress + `","amount":"5.0000000",
			"transaction":{"memo":"hello","memo_type":"text","fee_charged":"100","successful":true}}]}}`))

	case strings.HasPrefix(r.URL.Path, "/accounts/"):
		id := strings.TrimPrefix(r.URL.Path, "/accounts/")
		if !h.funded[id] {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"type":"https://stellar.org/horizon-errors/not_found","status":404,"title":"Resource Missing"}`))
			return
		}
		_, _ = fmt.Fprintf(w, `{"account_id":%q,"sequence":"100","balances":[{"balance":"50.0000000","asset_type":"native"}],
			"signers":[{"key":%q,"weight":1}],"data":{}}`, id, id)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// newTestHome writes a config pointing at the stub into a temp home.
func newTestHome(t *testing.T, horizon *horizonStub) string {
	t.Helper()
	home := t.TempDir()

	c := config.Defaults()
	c.Home = home
	c.Logging.File = filepath.Join(home, "caelus.log")
	c.Network.RequestsPerSecond = 1000
	c.Network.Burst = 1000
	if horizon != nil {
		c.Network.HorizonURL = horizon.server.URL
		c.Network.FriendbotURL = horizon.server.URL + "/friendbot"
	}
	require.NoError(t, config.Save(c, config.Path(home)))
	return home
}

// resetFlags restores flag variables between command runs.
func resetFlags() {
	homeDir, outputFormat, verbose = "", "auto", false
	createName, importName, importInput = "", "", ""
	accountAddName, accountAddImport, accountYes = "", "", false
	historyLimit = 10
	sendTo, sendAmount, sendMemo, sendYes = "", "", "", false
	resetConfirm = ""
}

// run executes the CLI with home and text output.
func run(t *testing.T, home string, args ...string) (string, string, error) {
	t.Helper()
	return runFormat(t, home, "text", args...)
}

func runFormat(t *testing.T, home, format string, args ...string) (string, string, error) {
	t.Helper()
	resetFlags()

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(append([]string{"--home", home, "--output", format}, args...))
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := Execute()
	return stdout.String(), stderr.String(), err
}
