package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/foomo/hbkbrowser/pkg/utils"
	"github.com/foomo/hbkbrowser/responses"
	"github.com/foomo/hbkbrowser/toc"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	EndpointTOC                 = "toc"
	EndpointContent             = "content"
	EndpointResolvePageLocation = "toc.resolve"
	EndpointResolveLink         = "v8help.resolve"
	EndpointSearch              = "search"
	EndpointAppInfo             = "app.info"
)

type (
	// Client talks to the help backend
	Client struct {
		l          *zap.Logger
		server     string
		httpClient *http.Client
	}
	Option func(*Client)
)

// ------------------------------------------------------------------------------------------------
// ~ Constructor
// ------------------------------------------------------------------------------------------------

// NewHTTPClient constructs a new client for the help backend at server
func NewHTTPClient(server string, opts ...Option) (*Client, error) {
	if !utils.IsValidURL(server) {
		return nil, errors.Errorf("invalid backend url %q", server)
	}
	inst := &Client{
		l:          zap.NewNop(),
		server:     strings.TrimSuffix(server, "/"),
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(inst)
	}
	return inst, nil
}

// ------------------------------------------------------------------------------------------------
// ~ Options
// ------------------------------------------------------------------------------------------------

func WithHTTPClient(v *http.Client) Option {
	return func(o *Client) {
		o.httpClient = v
	}
}

func WithLogger(v *zap.Logger) Option {
	return func(o *Client) {
		o.l = v.Named("client")
	}
}

// ------------------------------------------------------------------------------------------------
// ~ Public methods
// ------------------------------------------------------------------------------------------------

// TOC fetches the subtree below sectionPath, depth levels deep. An empty
// sectionPath returns the top level of the locale's table of contents.
func (c *Client) TOC(ctx context.Context, sectionPath string, depth int, locale string) ([]*toc.PageNode, error) {
	if depth < 1 {
		depth = 1
	}
	body, err := c.get(ctx, EndpointTOC, "/api/toc/"+utils.EscapePath(sectionPath), url.Values{
		"depth": []string{strconv.Itoa(depth)},
	}, locale)
	if err != nil {
		return nil, err
	}
	nodes, err := toc.Decode(body)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid toc for %q", sectionPath)
	}
	return nodes, nil
}

// Content fetches the html fragment of a page
func (c *Client) Content(ctx context.Context, pagePath, locale string) (string, error) {
	if pagePath == "" {
		return "", errors.New("page path must not be empty")
	}
	body, err := c.get(ctx, EndpointContent, "/api/content/"+utils.EscapePath(pagePath), nil, locale)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// ResolvePageLocation resolves a page location token to its section and page path
func (c *Client) ResolvePageLocation(ctx context.Context, token, locale string) (*responses.Resolve, error) {
	return c.resolve(ctx, EndpointResolvePageLocation, "/api/toc/resolve", url.Values{"pageLocation": []string{token}}, locale)
}

// ResolveLink resolves a cross reference link of the custom scheme
func (c *Client) ResolveLink(ctx context.Context, link, locale string) (*responses.Resolve, error) {
	return c.resolve(ctx, EndpointResolveLink, "/api/v8help/resolve", url.Values{"link": []string{link}}, locale)
}

// Search runs a full text search
func (c *Client) Search(ctx context.Context, query string, limit int, locale string) (*responses.Search, error) {
	values := url.Values{"query": []string{query}}
	if limit > 0 {
		values.Set("limit", strconv.Itoa(limit))
	}
	body, err := c.get(ctx, EndpointSearch, "/api/search", values, locale)
	if err != nil {
		return nil, err
	}
	result := &responses.Search{}
	if err := json.Unmarshal(body, result); err != nil {
		return nil, errors.Wrap(err, "invalid search reply")
	}
	if result.Query == "" {
		result.Query = query
	}
	return result, nil
}

// AppInfo fetches information about the backend, most notably the available locales
func (c *Client) AppInfo(ctx context.Context) (*responses.AppInfo, error) {
	body, err := c.get(ctx, EndpointAppInfo, "/api/app/info", nil, "")
	if err != nil {
		return nil, err
	}
	info := &responses.AppInfo{}
	if err := json.Unmarshal(body, info); err != nil {
		return nil, errors.Wrap(err, "invalid app info reply")
	}
	return info, nil
}

// ------------------------------------------------------------------------------------------------
// ~ Private methods
// ------------------------------------------------------------------------------------------------

func (c *Client) resolve(ctx context.Context, endpoint, path string, query url.Values, locale string) (*responses.Resolve, error) {
	body, err := c.get(ctx, endpoint, path, query, locale)
	if err != nil {
		return nil, err
	}
	result := &responses.Resolve{}
	if err := json.Unmarshal(body, result); err != nil {
		return nil, errors.Wrap(err, "invalid resolve reply")
	}
	if !result.Found() {
		return nil, errors.Wrapf(ErrNotFound, "%s %s", endpoint, query.Encode())
	}
	return result, nil
}
