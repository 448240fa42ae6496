// Package vippsauth contiene DTOs del login con Vipps.
package vippsauth

// StartResponse se devuelve cuando el cliente pide JSON en vez de redirect.
type StartResponse struct {
	AuthURL string `json:"authUrl"`
	State   string `json:"state"`
}

