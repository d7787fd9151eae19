package stellar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/stellar/go/support/render/problem"

	"github.com/mrz1836/caelus/internal/chain"
	caelerr "github.com/mrz1836/caelus/pkg/errors"
)

// FundTestnet asks Friendbot to create and fund publicKey on testnet.
func (c *Client) FundTestnet(ctx context.Context, publicKey string) error {
	if c.network != chain.Testnet {
		return fmt.Errorf("%w: friendbot is only available on %s", caelerr.ErrInvalidInput, chain.Testnet)
	}
	if !IsValidPublicAddress(publicKey) {
		return fmt.Errorf("%w: %s", caelerr.ErrInvalidAddress, publicKey)
	}

	endpoint := c.friendbotURL + "?addr=" + url.QueryEscape(publicKey)
	resp, err := c.get(ctx, "friendbot", endpoint)
	if err != nil {
		return err
	}

	if resp.status != http.StatusOK {
		var p problem.P
		if json.Unmarshal(resp.body, &p) == nil && p.Detail != "" {
			return fmt.Errorf("%w: friendbot: %s", caelerr.ErrNetworkError, p.Detail)
		}
		return fmt.Errorf("%w: friendbot status %d", caelerr.ErrNetworkError, resp.status)
	}
	return nil
}
