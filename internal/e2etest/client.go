package e2etest

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/descope/virtualwebauthn"
)

type Client struct {
	client        *http.Client
	url           string
	rp            virtualwebauthn.RelyingParty
	authenticator virtualwebauthn.Authenticator
}

// NewClient creates a Webauthn-aware HTTP client.
//
// rpID and rpOrigin should correspond to the Webauthn setup on the server.
func NewClient(url, rpID, rpOrigin string) (*Client, error) {
	jar, err := newUnsafeCookieJar()
	if err != nil {
		return nil, fmt.Errorf("create unsafe cookie jar: %w", err)
	}
	return &Client{
		client:        &http.Client{Jar: jar}, //nolint:exhaustruct // defaults.
		url:           url,
		rp:            virtualwebauthn.RelyingParty{Name: "WOD Coach", ID: rpID, Origin: rpOrigin},
		authenticator: virtualwebauthn.NewAuthenticator(),
	}, nil
}

// WaitForReady calls the specified endpoint until it gets a HTTP 200 Success
// response or until the context is cancelled or the 1-second timeout is reached.
func (c *Client) WaitForReady(ctx context.Context, urlPath string) error {
	deadline := time.Now().Add(time.Second)
	for {
		resp, err := c.Get(ctx, urlPath)
		if err == nil {
			status := resp.StatusCode
			if err = resp.Body.Close(); err != nil {
				return fmt.Errorf("close response body: %w", err)
			}
			if status == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled: %w", ctx.Err())
		case <-time.After(100 * time.Millisecond): //nolint:mnd // poll interval.
			if time.Now().After(deadline) {
				return errors.New("timeout waiting for endpoint to be ready")
			}
		}
	}
}

// Do sends a request to urlPath on the server.
func (c *Client) Do(ctx context.Context, method, urlPath, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.url+urlPath, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	return resp, nil
}

// Get fetches a URL and returns the response.
func (c *Client) Get(ctx context.Context, urlPath string) (*http.Response, error) {
	return c.Do(ctx, http.MethodGet, urlPath, "", nil)
}

// documentFrom parses a 200 OK response. The response body is closed.
func documentFrom(resp *http.Response) (*goquery.Document, error) {
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("create document from reader: %w", err)
	}
	doc.Url = resp.Request.URL
	return doc, nil
}

// GetDoc fetches a URL and returns a goquery document.
func (c *Client) GetDoc(ctx context.Context, urlPath string) (*goquery.Document, error) {
	resp, err := c.Get(ctx, urlPath)
	if err != nil {
		return nil, fmt.Errorf("client get: %w", err)
	}
	return documentFrom(resp)
}

// postJSON posts body to the ceremony endpoint and returns the response body.
func (c *Client) postJSON(ctx context.Context, urlPath string, body string) (string, error) {
	resp, err := c.Do(ctx, http.MethodPost, urlPath, "application/json", strings.NewReader(body))
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code %d from %s", resp.StatusCode, urlPath)
	}
	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(out), nil
}

// Register registers a new WebAuthn credential with the server and returns the front page document.
func (c *Client) Register(ctx context.Context) (*goquery.Document, error) {
	doc, err := c.GetDoc(ctx, "/")
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	if _, err = FindForm(doc, "/api/registration/start"); err != nil {
		return nil, fmt.Errorf("registration is not offered: %w", err)
	}

	options, err := c.postJSON(ctx, "/api/registration/start", "")
	if err != nil {
		return nil, fmt.Errorf("start registration: %w", err)
	}
	attOpts, err := virtualwebauthn.ParseAttestationOptions(options)
	if err != nil {
		return nil, fmt.Errorf("parse attestation options: %w", err)
	}

	credential := virtualwebauthn.NewCredential(virtualwebauthn.KeyTypeEC2)
	attestation := virtualwebauthn.CreateAttestationResponse(c.rp, c.authenticator, credential, *attOpts)
	if _, err = c.postJSON(ctx, "/api/registration/finish", attestation); err != nil {
		return nil, fmt.Errorf("finish registration: %w", err)
	}

	c.authenticator.AddCredential(credential)
	// Discoverable login needs the user handle of the credential.
	c.authenticator.Options.UserHandle = []byte(attOpts.UserID)

	if doc, err = c.GetDoc(ctx, "/"); err != nil {
		return nil, fmt.Errorf("get document after registration: %w", err)
	}
	return doc, nil
}

// Login logs in to the server given there is a registered WebAuthn credential and returns the front page document.
func (c *Client) Login(ctx context.Context) (*goquery.Document, error) {
	if len(c.authenticator.Credentials) == 0 {
		return nil, errors.New("no registered credential")
	}
	doc, err := c.GetDoc(ctx, "/")
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	if _, err = FindForm(doc, "/api/login/start"); err != nil {
		return nil, fmt.Errorf("login is not offered: %w", err)
	}

	options, err := c.postJSON(ctx, "/api/login/start", "")
	if err != nil {
		return nil, fmt.Errorf("start login: %w", err)
	}
	asOpts, err := virtualwebauthn.ParseAssertionOptions(options)
	if err != nil {
		return nil, fmt.Errorf("parse assertion options: %w", err)
	}

	assertion := virtualwebauthn.CreateAssertionResponse(c.rp, c.authenticator, c.authenticator.Credentials[0], *asOpts)
	if _, err = c.postJSON(ctx, "/api/login/finish", assertion); err != nil {
		return nil, fmt.Errorf("finish login: %w", err)
	}

	if doc, err = c.GetDoc(ctx, "/"); err != nil {
		return nil, fmt.Errorf("get document after login: %w", err)
	}
	return doc, nil
}

func (c *Client) Logout(ctx context.Context) (*goquery.Document, error) {
	doc, err := c.GetDoc(ctx, "/preferences")
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	if doc, err = c.SubmitForm(ctx, doc, "/api/logout", nil); err != nil {
		return nil, fmt.Errorf("submit form: %w", err)
	}
	return doc, nil
}

// formValues collects what a browser would submit for the form without user input: hidden and text inputs,
// checked boxes, selected options and textareas.
func formValues(form *goquery.Selection) neturl.Values {
	values := neturl.Values{}
	form.Find("input[name]").Each(func(_ int, input *goquery.Selection) {
		name, _ := input.Attr("name")
		value, _ := input.Attr("value")
		switch input.AttrOr("type", "text") {
		case "checkbox", "radio":
			if _, checked := input.Attr("checked"); checked {
				values.Add(name, cmp.Or(value, "on"))
			}
		case "submit", "button":
		default:
			values.Add(name, value)
		}
	})
	form.Find("select[name]").Each(func(_ int, sel *goquery.Selection) {
		name, _ := sel.Attr("name")
		selected := sel.Find("option[selected]")
		if selected.Length() == 0 && !IsMultipleSelect(sel) {
			selected = sel.Find("option").First()
		}
		selected.Each(func(_ int, option *goquery.Selection) {
			values.Add(name, option.AttrOr("value", option.Text()))
		})
	})
	form.Find("textarea[name]").Each(func(_ int, area *goquery.Selection) {
		name, _ := area.Attr("name")
		values.Add(name, area.Text())
	})
	return values
}

// SubmitForm submits a form in the doc identified with action formActionUrlPath and returns the response document.
// formFields is a map of label text to value. Fields without a label keep the value rendered into the form.
func (c *Client) SubmitForm(
	ctx context.Context,
	doc *goquery.Document,
	formActionURLPath string,
	formFields map[string]string,
) (*goquery.Document, error) {
	form, err := FindForm(doc, formActionURLPath)
	if err != nil {
		return nil, fmt.Errorf("find form: %w", err)
	}

	values := formValues(form)
	for labelText, value := range formFields {
		var field *goquery.Selection
		if field, err = FindInputForLabel(form, labelText); err != nil {
			if field, err = FindSelectForLabel(form, labelText); err != nil {
				return nil, fmt.Errorf("find field for label: %w", err)
			}
		}
		name, exists := field.Attr("name")
		if !exists {
			return nil, fmt.Errorf("field has no name attribute (label: %s, form_action: %s)",
				labelText, formActionURLPath)
		}
		values.Set(name, value)
	}

	return c.PostForm(ctx, formActionURLPath, values)
}

// PostForm posts values to urlPath, follows redirects and returns the resulting document.
func (c *Client) PostForm(ctx context.Context, urlPath string, values neturl.Values) (*goquery.Document, error) {
	resp, err := c.Do(ctx, http.MethodPost, urlPath, "application/x-www-form-urlencoded",
		strings.NewReader(values.Encode()))
	if err != nil {
		return nil, err
	}
	return documentFrom(resp)
}
