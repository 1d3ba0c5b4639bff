package linkhub

// Token is a session token issued by the authority. Expiration and the
// server time reported by GetTime share one timestamp format.
type Token struct {
	SessionToken string   `json:"session_token"`
	ServiceID    string   `json:"serviceID"`
	LinkID       string   `json:"linkID"`
	UserCode     string   `json:"usercode"`
	IPAddress    string   `json:"ipaddress"`
	Expiration   string   `json:"expiration"`
	Scope        []string `json:"scope"`
}

// TokenRequest is the body of POST /{serviceID}/Token.
type TokenRequest struct {
	AccessID string   `json:"access_id,omitempty"`
	Scope    []string `json:"scope"`
}

// PointResponse is the body of GET /{serviceID}/PartnerPoint.
type PointResponse struct {
	RemainPoint float64 `json:"remainPoint"`
}
