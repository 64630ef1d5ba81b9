package reply

import "regexp"

// MinProtocolDigits is the shortest digit run treated as a protocol code.
const MinProtocolDigits = 6

var protocolPattern = regexp.MustCompile(`[0-9]{6,}`)

// ExtractProtocol returns the first run of six or more consecutive digits in
// text. ok is false when there is none.
func ExtractProtocol(text string) (code string, ok bool) {
	code = protocolPattern.FindString(text)
	return code, code != ""
}
