// SPDX-License-Identifier: MIT

package restmap

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Encode serializes registrations back to conf format. Keys holding their
// parse-time default (scripttype per-request, false booleans) are omitted,
// so minimal stanzas stay minimal and Parse(Encode(regs)) yields
// registrations equal to regs. Comments are not preserved.
func Encode(regs []*EndpointRegistration) []byte {
	var buf bytes.Buffer
	for i, reg := range regs {
		if i > 0 {
			buf.WriteByte('\n')
		}
		fmt.Fprintf(&buf, "[%s]\n", reg.StanzaName())
		writePair(&buf, keyMatch, reg.Route)
		writePair(&buf, keyScript, reg.ScriptPath)
		if reg.InvocationMode != InvocationPerRequest {
			writePair(&buf, keyScriptType, string(reg.InvocationMode))
		}
		writePair(&buf, keyHandler, reg.HandlerSymbol)
		writeBoolPair(&buf, keyRequireAuth, reg.RequireAuthentication)
		if reg.Capability != "" {
			writePair(&buf, keyCapability, reg.Capability)
		}
		if len(reg.OutputModes) > 0 {
			writePair(&buf, keyOutputModes, strings.Join(reg.OutputModes, ","))
		}
		writeBoolPair(&buf, keyPassPayload, reg.PassPayload)
		writeBoolPair(&buf, keyPassHeaders, reg.PassHTTPHeaders)
		writeBoolPair(&buf, keyPassCookies, reg.PassHTTPCookies)
	}
	return buf.Bytes()
}

func writeBoolPair(buf *bytes.Buffer, key string, value bool) {
	if value {
		writePair(buf, key, strconv.FormatBool(value))
	}
}

func writePair(buf *bytes.Buffer, key, value string) {
	fmt.Fprintf(buf, "%s = %s\n", key, value)
}
