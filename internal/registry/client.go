// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/snok/container-retention-policy/internal/logger"
	"github.com/snok/container-retention-policy/internal/ratelimit"
)

const (
	defaultAPIHost  = "api.github.com"
	versionsPerPage = 100
	requestTimeout  = 30 * time.Second
)

// Client is the GitHub Packages REST client. It owns the Rate Governor and
// the owner login it learns from the first response of a run.
type Client struct {
	http     *http.Client
	token    string
	apiHost  string
	governor *ratelimit.Governor

	mu    sync.Mutex
	owner string
}

// NewClient builds a Registry Client. apiHost defaults to api.github.com
// when empty, to support GitHub Enterprise hosts.
func NewClient(token string, governor *ratelimit.Governor, apiHost string) *Client {
	if apiHost == "" {
		apiHost = defaultAPIHost
	}
	return &Client{
		http:     &http.Client{Timeout: requestTimeout},
		token:    token,
		apiHost:  apiHost,
		governor: governor,
	}
}

// Owner returns the owner login the client has learned from the first
// Package response, and whether one has been set yet.
func (c *Client) Owner() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.owner, c.owner != ""
}

func (c *Client) setOwnerIfUnset(owner string) {
	if owner == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.owner == "" {
		c.owner = owner
	}
}

// ListPackages enumerates all container packages for the account.
// Unavailable to temporal tokens — callers must check auth.Kind.IsTemporal
// before calling this.
func (c *Client) ListPackages(ctx context.Context, account Account) ([]Package, error) {
	base := fmt.Sprintf("https://%s/orgs/%s/packages", c.apiHost, url.PathEscape(account.Login))
	if account.Kind == AccountUser {
		base = fmt.Sprintf("https://%s/users/%s/packages", c.apiHost, url.PathEscape(account.Login))
	}
	q := url.Values{"package_type": {"container"}, "per_page": {"100"}}

	var all []Package
	page := 1
	for {
		q.Set("page", strconv.Itoa(page))
		reqURL := base + "?" + q.Encode()

		var batch []Package
		if err := c.doJSON(ctx, ratelimit.EndpointListPackages, ratelimit.CostGet, http.MethodGet, reqURL, &batch); err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			break
		}
		all = append(all, batch...)
		if len(all) > 0 {
			c.setOwnerIfUnset(all[0].OwnerName)
		}
		if len(batch) < 100 {
			break
		}
		page++
	}
	return all, nil
}

// GetPackage is the single-lookup fallback path used when the token is
// temporal and the literal package name is known.
func (c *Client) GetPackage(ctx context.Context, account Account, name string) (Package, error) {
	base := fmt.Sprintf("https://%s/orgs/%s/packages/container/%s", c.apiHost, url.PathEscape(account.Login), url.PathEscape(name))
	if account.Kind == AccountUser {
		base = fmt.Sprintf("https://%s/users/%s/packages/container/%s", c.apiHost, url.PathEscape(account.Login), url.PathEscape(name))
	}

	var pkg Package
	if err := c.doJSON(ctx, ratelimit.EndpointGetPackage, ratelimit.CostGet, http.MethodGet, base, &pkg); err != nil {
		return Package{}, err
	}
	c.setOwnerIfUnset(pkg.OwnerName)
	return pkg, nil
}

// ListPackageVersions returns at most 100 versions per call; pagination
// beyond the first page is not supported by this endpoint's caller.
func (c *Client) ListPackageVersions(ctx context.Context, account Account, pkg Package) ([]PackageVersion, error) {
	base := fmt.Sprintf("https://%s/orgs/%s/packages/container/%s/versions", c.apiHost, url.PathEscape(account.Login), url.PathEscape(pkg.Name))
	if account.Kind == AccountUser {
		base = fmt.Sprintf("https://%s/users/%s/packages/container/%s/versions", c.apiHost, url.PathEscape(account.Login), url.PathEscape(pkg.Name))
	}
	reqURL := base + "?" + url.Values{"per_page": {strconv.Itoa(versionsPerPage)}}.Encode()

	var raw []rawPackageVersion
	if err := c.doJSON(ctx, ratelimit.EndpointListVersions, ratelimit.CostGet, http.MethodGet, reqURL, &raw); err != nil {
		return nil, err
	}

	versions := make([]PackageVersion, 0, len(raw))
	for _, r := range raw {
		versions = append(versions, r.toPackageVersion())
	}
	return versions, nil
}

// DeletePackageVersion issues the DELETE for a single package version.
func (c *Client) DeletePackageVersion(ctx context.Context, account Account, pkg Package, versionID int64) error {
	base := fmt.Sprintf("https://%s/orgs/%s/packages/container/%s/versions/%d", c.apiHost, url.PathEscape(account.Login), url.PathEscape(pkg.Name), versionID)
	if account.Kind == AccountUser {
		base = fmt.Sprintf("https://%s/users/%s/packages/container/%s/versions/%d", c.apiHost, url.PathEscape(account.Login), url.PathEscape(pkg.Name), versionID)
	}

	resp, err := c.do(ctx, ratelimit.EndpointDeleteVersion, ratelimit.CostDelete, http.MethodDelete, base)
	if err != nil {
		return &VersionError{VersionID: versionID, Reason: err.Error()}
	}
	resp.Body.Close()
	return nil
}

// doJSON performs do and decodes a 2xx JSON body into out.
func (c *Client) doJSON(ctx context.Context, endpoint ratelimit.Endpoint, points int, method, reqURL string, out interface{}) error {
	resp, err := c.do(ctx, endpoint, points, method, reqURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decoding response from %s", reqURL)
	}
	return nil
}

// do is the single choke point every REST call passes through: it acquires
// Rate Governor permits, performs the call, updates the primary limit from
// response headers, and retries rate-limited/5xx responses up to the
// retry ceiling. The returned response's Body is the caller's to close on
// success.
func (c *Client) do(ctx context.Context, endpoint ratelimit.Endpoint, points int, method, reqURL string) (*http.Response, error) {
	log := logger.Get()

	var lastErr error
	for attempt := 0; attempt <= ratelimit.MaxRetries(); attempt++ {
		release, err := c.governor.Acquire(ctx, endpoint, points)
		if err != nil {
			return nil, errors.Wrap(err, "acquiring rate governor permit")
		}

		req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
		if err != nil {
			release()
			return nil, err
		}
		req.Header.Set("Accept", "application/vnd.github+json")
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

		resp, err := c.http.Do(req)
		release()
		if err != nil {
			lastErr = err
			if swerr := ratelimit.Sleep(ctx, ratelimit.BackoffDelay(attempt)); swerr != nil {
				return nil, swerr
			}
			continue
		}

		c.updatePrimaryFromHeaders(resp.Header)

		if resp.StatusCode == http.StatusUnauthorized || (resp.StatusCode == http.StatusForbidden && attempt == 0 && resp.Header.Get("Retry-After") == "") {
			resp.Body.Close()
			return nil, &AuthError{StatusCode: resp.StatusCode, Endpoint: reqURL}
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}

		retryAfter, hasRetryAfter := ratelimit.ParseRetryAfter(resp.Header.Get("Retry-After"))
		outcome := ratelimit.Classify(resp.StatusCode, hasRetryAfter)
		resp.Body.Close()

		switch outcome {
		case ratelimit.OutcomeRetryAfter:
			log.Warn().Str(logger.FieldEndpoint, string(endpoint)).Int(logger.FieldStatusCode, resp.StatusCode).Dur(logger.FieldRetryAfter, retryAfter).Msg("rate limited, requeueing")
			lastErr = errors.Errorf("rate limited with status %d", resp.StatusCode)
			if attempt == ratelimit.MaxRetries() {
				break
			}
			if retryAfter <= 0 {
				retryAfter = ratelimit.BackoffDelay(attempt)
			}
			if swerr := ratelimit.Sleep(ctx, retryAfter); swerr != nil {
				return nil, swerr
			}
			continue
		case ratelimit.OutcomeBackoff:
			lastErr = errors.Errorf("server error with status %d", resp.StatusCode)
			if attempt == ratelimit.MaxRetries() {
				break
			}
			if swerr := ratelimit.Sleep(ctx, ratelimit.BackoffDelay(attempt)); swerr != nil {
				return nil, swerr
			}
			continue
		default:
			return nil, errors.Errorf("request to %s failed with status %d", reqURL, resp.StatusCode)
		}
	}
	return nil, errors.Wrap(lastErr, "exhausted retries")
}

func (c *Client) updatePrimaryFromHeaders(h http.Header) {
	remaining, err1 := strconv.Atoi(h.Get("x-ratelimit-remaining"))
	reset, err2 := strconv.ParseInt(h.Get("x-ratelimit-reset"), 10, 64)
	if err1 != nil || err2 != nil {
		return
	}
	c.governor.UpdatePrimary(remaining, reset)
}
