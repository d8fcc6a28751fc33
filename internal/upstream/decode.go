package upstream

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/transform"
)

// decodeBody turns raw upstream bytes into a UTF-8 string. The enrollment
// system serves Big5 by default but some pages come back already in UTF-8,
// so try Big5 first, then plain UTF-8, then a lossy UTF-8 pass. Decoding
// never fails; worst case the caller gets replacement runes.
func decodeBody(raw []byte) string {
	if out, _, err := transform.Bytes(traditionalchinese.Big5.NewDecoder(), raw); err == nil {
		s := string(out)
		if !strings.ContainsRune(s, utf8.RuneError) {
			return s
		}
	}
	if utf8.Valid(raw) {
		return string(raw)
	}
	return strings.ToValidUTF8(string(raw), string(utf8.RuneError))
}

// readDecoded drains and decodes an HTTP response body. A non-2xx status is
// reported as a transient network failure.
func readDecoded(resp *http.Response) (string, error) {
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("unexpected status %d: %w", resp.StatusCode, ErrNetwork)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w: %v", ErrNetwork, err)
	}
	return decodeBody(raw), nil
}
