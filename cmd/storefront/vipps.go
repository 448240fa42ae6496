package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type client struct {
	BaseURL   string
	APIKey    string
	OutFormat string // "json" | "text"
	HTTP      *http.Client
}

func (c *client) do(method, path string, body []byte) (int, []byte, error) {
	req, err := http.NewRequest(method, strings.TrimRight(c.BaseURL, "/")+path, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("X-Admin-API-Key", c.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b, nil
}

func (c *client) print(w io.Writer, status int, body []byte) {
	if c.OutFormat == "json" {
		var v any
		if json.Unmarshal(body, &v) == nil {
			p, _ := json.MarshalIndent(v, "", "  ")
			fmt.Fprintln(w, string(p))
			return
		}
	}
	if len(body) > 0 {
		fmt.Fprintln(w, string(body))
	} else {
		fmt.Fprintf(w, "status=%d\n", status)
	}
}

// sessionOp llama /admin/payments/vipps/sessions/{id}/{op}.
func (c *client) sessionOp(cmd *cobra.Command, method, id, op string, body []byte) error {
	path := "/admin/payments/vipps/sessions/" + url.PathEscape(id) + "/" + op
	status, out, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	if status/100 != 2 {
		return fmt.Errorf("%s failed: status=%d body=%s", op, status, string(out))
	}
	c.print(cmd.OutOrStdout(), status, out)
	return nil
}

func newVippsCmd() *cobra.Command {
	cl := &client{
		BaseURL:   envOr("STOREFRONT_ADMIN_URL", "http://localhost:9000"),
		APIKey:    envOr("ADMIN_API_KEY", ""),
		OutFormat: envOr("STOREFRONT_OUT", "text"),
		HTTP:      &http.Client{Timeout: 30 * time.Second},
	}

	root := &cobra.Command{
		Use:   "vipps",
		Short: "Operaciones sobre payment sessions de Vipps (vía Admin API)",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cl.APIKey == "" {
				return fmt.Errorf("missing API key (flag --admin-api-key or env ADMIN_API_KEY)")
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&cl.BaseURL, "admin-api-url", cl.BaseURL, "URL base del backend (env STOREFRONT_ADMIN_URL)")
	root.PersistentFlags().StringVar(&cl.APIKey, "admin-api-key", cl.APIKey, "API key de admin (env ADMIN_API_KEY)")
	root.PersistentFlags().StringVar(&cl.OutFormat, "out", cl.OutFormat, "Formato de salida: json|text")

	simple := func(use, short, method, op string) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <session-id>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return cl.sessionOp(cmd, method, args[0], op, nil)
			},
		}
	}

	var amount int64
	refundCmd := &cobra.Command{
		Use:   "refund <session-id>",
		Short: "Reembolsa el pago (total si --amount es 0)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var body []byte
			if amount > 0 {
				body, _ = json.Marshal(map[string]int64{"amount": amount})
			}
			return cl.sessionOp(cmd, http.MethodPost, args[0], "refund", body)
		},
	}
	refundCmd.Flags().Int64Var(&amount, "amount", 0, "Monto en unidades menores")

	root.AddCommand(
		simple("status", "Consulta el estado del pago en Vipps", http.MethodGet, "status"),
		simple("authorize", "Verifica la autorización del pago", http.MethodPost, "authorize"),
		simple("capture", "Captura el monto autorizado", http.MethodPost, "capture"),
		simple("cancel", "Cancela el pago", http.MethodPost, "cancel"),
		refundCmd,
	)
	return root
}
