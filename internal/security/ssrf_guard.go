// Package security はアプリケーションのセキュリティ機能を提供する。
package security

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
)

// URLGuardService は外部URLに関する防御機能のインターフェースを定義する。
// ユーザー入力の書影URLの検証と、書籍検索APIへのリクエストの両方で使用される。
type URLGuardService interface {
	// NewSafeClient はSSRF防止機能付きのHTTPクライアントを生成する。
	// safeurlライブラリにより、プライベートIP、ループバック、リンクローカル、
	// メタデータIPへのリクエストがブロックされる。safeurlはnet.Dialerの
	// ControlフックでDNS解決後のIPアドレスを検証するため、
	// DNS再バインディング攻撃にも対応している。
	NewSafeClient(timeout time.Duration) *http.Client

	// ValidateCoverURL は書影URLとして保存してよいかを静的に検証する。
	// http/https以外のスキーム、空ホスト、内部ネットワークを指すIP、
	// localhost等の危険なホスト名を拒否する。
	// DNS解決は行わない。保存したURLを実際に取得するのはブラウザであり、
	// サーバー側から書影URLへリクエストすることはない。
	ValidateCoverURL(rawURL string) error
}

// urlGuard はURLGuardServiceの実装。
type urlGuard struct {
	blockedNets []*net.IPNet
}

// internalCIDRs は書影URLとして拒否するネットワーク範囲。
// プライベート(RFC 1918)、ループバック、リンクローカル（クラウドメタデータIPを含む）、
// およびIPv6の同等レンジ。
var internalCIDRs = []string{
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"127.0.0.0/8",
	"169.254.0.0/16",
	"0.0.0.0/8",
	"::1/128",
	"fe80::/10",
	"fc00::/7",
}

// NewURLGuard はURLGuardServiceの新しいインスタンスを生成する。
func NewURLGuard() *urlGuard {
	g := &urlGuard{}
	for _, cidr := range internalCIDRs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("invalid CIDR in internalCIDRs: %s: %v", cidr, err))
		}
		g.blockedNets = append(g.blockedNets, network)
	}
	return g
}

// NewSafeClient はSSRF防止機能付きのHTTPクライアントを生成する。
// 書籍検索APIへのリクエストに使用する。
func (g *urlGuard) NewSafeClient(timeout time.Duration) *http.Client {
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes("http", "https").
		SetAllowedPorts(80, 443).
		Build()

	return safeurl.Client(config).Client
}

// ValidateCoverURL は書影URLとして保存してよいかを静的に検証する。
func (g *urlGuard) ValidateCoverURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("empty URL")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
	default:
		return fmt.Errorf("disallowed scheme: %s", parsed.Scheme)
	}

	host := parsed.Hostname()
	if host == "" {
		return fmt.Errorf("empty host in URL: %s", rawURL)
	}

	if ip := net.ParseIP(host); ip != nil {
		for _, network := range g.blockedNets {
			if network.Contains(ip) {
				return fmt.Errorf("blocked IP address: %s", ip.String())
			}
		}
		return nil
	}

	if strings.EqualFold(host, "localhost") {
		return fmt.Errorf("blocked host: %s", host)
	}

	return nil
}

// compile-time interface check
var _ URLGuardService = (*urlGuard)(nil)
