package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/Morfar22/nexus-rp-portal-sub002/internal/types"
	"github.com/Morfar22/nexus-rp-portal-sub002/internal/util"
)

const graphSendMailURL = "https://graph.microsoft.com/v1.0/users/%s/sendMail"

// GraphSender emails notifications through Microsoft Graph using app
// credentials.
type GraphSender struct {
	cfg types.GraphConfig
	oa  *clientcredentials.Config
}

// NewGraphSender returns a Graph email sender, or nil when the
// configuration is incomplete.
func NewGraphSender(cfg types.GraphConfig) *GraphSender {
	if !util.AllConfigured(cfg.TenantID, cfg.ClientID, cfg.ClientSecret, cfg.FromAddress, cfg.Recipients) {
		return nil
	}
	return &GraphSender{
		cfg: cfg,
		oa: &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", cfg.TenantID),
			Scopes:       []string{"https://graph.microsoft.com/.default"},
		},
	}
}

func (g *GraphSender) Name() string { return "email" }

type graphRecipient struct {
	EmailAddress struct {
		Address string `json:"address"`
	} `json:"emailAddress"`
}

type graphMessage struct {
	Message struct {
		Subject string `json:"subject"`
		Body    struct {
			ContentType string `json:"contentType"`
			Content     string `json:"content"`
		} `json:"body"`
		ToRecipients []graphRecipient `json:"toRecipients"`
	} `json:"message"`
	SaveToSentItems bool `json:"saveToSentItems"`
}

// Send delivers the notification as email to every recipient.
func (g *GraphSender) Send(ctx context.Context, subject, body string) error {
	msg := graphMessage{}
	msg.Message.Subject = subject
	msg.Message.Body.ContentType = "Text"
	msg.Message.Body.Content = body
	for _, addr := range strings.Split(g.cfg.Recipients, ",") {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		var r graphRecipient
		r.EmailAddress.Address = addr
		msg.Message.ToRecipients = append(msg.Message.ToRecipients, r)
	}
	if len(msg.Message.ToRecipients) == 0 {
		return fmt.Errorf("no valid recipients configured")
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return util.WrapError("encode email payload", err)
	}
	url := fmt.Sprintf(graphSendMailURL, g.cfg.FromAddress)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return util.WrapError("create email request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.oa.Client(ctx).Do(req)
	if err != nil {
		return util.WrapError("deliver email", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("graph returned status %d", resp.StatusCode)
	}
	return nil
}
