package source

import (
	"net/url"
	"strings"

	"github.com/ByLCY/memegen/handle"
)

// AccessMode 决定远程请求是否以匿名跨域方式发出。
type AccessMode int

const (
	// ModeDefault 用于同源或本地资源：携带凭据，不做跨域校验。
	ModeDefault AccessMode = iota
	// ModeAnonymous 用于跨域资源：不带凭据，响应必须显式允许应用所在的源。
	ModeAnonymous
)

func (m AccessMode) String() string {
	if m == ModeAnonymous {
		return "anonymous"
	}
	return "default"
}

// AccessModeFor 根据引用与应用源推导访问方式。
// 只有来源与应用不同的 http(s) 引用才使用匿名模式；本地句柄、data: 与文件路径一律使用默认模式。
func AccessModeFor(ref, appOrigin string) AccessMode {
	if !isRemote(ref) {
		return ModeDefault
	}
	if appOrigin == "" {
		return ModeAnonymous
	}
	refOrigin, ok := originOf(ref)
	if !ok {
		return ModeAnonymous
	}
	app, ok := originOf(appOrigin)
	if !ok || refOrigin != app {
		return ModeAnonymous
	}
	return ModeDefault
}

func isRemote(ref string) bool {
	if handle.IsHandle(ref) {
		return false
	}
	lower := strings.ToLower(ref)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// originOf 返回 scheme://host:port 形式的源，省略的默认端口会补齐。
func originOf(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return "", false
	}
	scheme := strings.ToLower(u.Scheme)
	port := u.Port()
	if port == "" {
		switch scheme {
		case "http":
			port = "80"
		case "https":
			port = "443"
		}
	}
	return scheme + "://" + strings.ToLower(u.Hostname()) + ":" + port, true
}

// corsAllows 判断 Access-Control-Allow-Origin 是否允许应用源读取像素。
func corsAllows(allowOrigin, appOrigin string) bool {
	allowOrigin = strings.TrimSpace(allowOrigin)
	if allowOrigin == "" {
		return false
	}
	if allowOrigin == "*" {
		return true
	}
	a, ok := originOf(allowOrigin)
	if !ok {
		return false
	}
	b, ok := originOf(appOrigin)
	return ok && a == b
}
