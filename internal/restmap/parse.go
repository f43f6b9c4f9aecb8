// SPDX-License-Identifier: MIT

package restmap

import (
	"fmt"
	"strings"

	"gopkg.in/ini.v1"
)

// knownKeys is the closed set of keys a script stanza may carry. Unknown
// keys are a load error so that typos (or a silently re-enabled capability
// under a misspelled key) cannot slip through.
var knownKeys = map[string]struct{}{
	keyMatch:       {},
	keyScript:      {},
	keyScriptType:  {},
	keyHandler:     {},
	keyRequireAuth: {},
	keyCapability:  {},
	keyOutputModes: {},
	keyPassPayload: {},
	keyPassHeaders: {},
	keyPassCookies: {},
}

// Parse reads restmap.conf content and returns the endpoint registrations in
// stanza order. Non-script sections are rejected; comments are discarded.
func Parse(source []byte) ([]*EndpointRegistration, error) {
	file, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment: true,
	}, source)
	if err != nil {
		return nil, fmt.Errorf("parse restmap conf: %w", err)
	}

	var regs []*EndpointRegistration
	for _, section := range file.Sections() {
		name := section.Name()
		if name == ini.DefaultSection {
			if len(section.Keys()) > 0 {
				return nil, fmt.Errorf("keys outside of a stanza: %s", section.KeyStrings()[0])
			}
			continue
		}
		if !strings.HasPrefix(name, stanzaPrefix) {
			return nil, fmt.Errorf("unsupported stanza type: [%s]", name)
		}

		reg, err := parseStanza(strings.TrimPrefix(name, stanzaPrefix), section)
		if err != nil {
			return nil, fmt.Errorf("stanza [%s]: %w", name, err)
		}
		regs = append(regs, reg)
	}

	if len(regs) == 0 {
		return nil, fmt.Errorf("no script stanzas found")
	}
	return regs, nil
}

func parseStanza(name string, section *ini.Section) (*EndpointRegistration, error) {
	for _, key := range section.KeyStrings() {
		if _, ok := knownKeys[key]; !ok {
			return nil, fmt.Errorf("unknown key %q", key)
		}
	}

	reg := &EndpointRegistration{
		Name:           name,
		Route:          section.Key(keyMatch).String(),
		ScriptPath:     section.Key(keyScript).String(),
		HandlerSymbol:  section.Key(keyHandler).String(),
		InvocationMode: InvocationPerRequest,
		Capability:     section.Key(keyCapability).String(),
	}

	if section.HasKey(keyScriptType) {
		switch mode := section.Key(keyScriptType).String(); mode {
		case string(InvocationPersist):
			reg.InvocationMode = InvocationPersist
		case string(InvocationPerRequest), "":
			reg.InvocationMode = InvocationPerRequest
		default:
			return nil, fmt.Errorf("invalid %s %q", keyScriptType, mode)
		}
	}

	var err error
	if reg.RequireAuthentication, err = parseBoolKey(section, keyRequireAuth, false); err != nil {
		return nil, err
	}
	if reg.PassPayload, err = parseBoolKey(section, keyPassPayload, false); err != nil {
		return nil, err
	}
	if reg.PassHTTPHeaders, err = parseBoolKey(section, keyPassHeaders, false); err != nil {
		return nil, err
	}
	if reg.PassHTTPCookies, err = parseBoolKey(section, keyPassCookies, false); err != nil {
		return nil, err
	}

	if section.HasKey(keyOutputModes) {
		for _, mode := range strings.Split(section.Key(keyOutputModes).String(), ",") {
			mode = strings.TrimSpace(mode)
			if mode == "" {
				continue
			}
			reg.OutputModes = append(reg.OutputModes, mode)
		}
	}

	return reg, nil
}

func parseBoolKey(section *ini.Section, key string, fallback bool) (bool, error) {
	if !section.HasKey(key) {
		return fallback, nil
	}
	v, err := section.Key(key).Bool()
	if err != nil {
		return false, fmt.Errorf("invalid boolean for %s: %w", key, err)
	}
	return v, nil
}
