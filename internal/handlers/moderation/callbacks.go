package moderation

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	callbackPrefix = "act"
	// MaxCallbackLen is Telegram's callback_data limit in bytes.
	MaxCallbackLen = 64
)

// Verb is the action encoded in an inline button.
type Verb string

const (
	VerbTakeAction Verb = "ta"
	VerbManageBio  Verb = "mb"
	VerbMute       Verb = "mu"
	VerbKick       Verb = "ki"
	VerbBan        Verb = "ba"
	VerbWarn       Verb = "wa"
	VerbCancel     Verb = "ca"
	VerbAllowBio   Verb = "al"
	VerbDenyBio    Verb = "de"

	VerbSettings Verb = "st"
	VerbToggle   Verb = "tg"
	VerbWelcome  Verb = "wm"
	VerbClose    Verb = "cl"
	VerbHelp     Verb = "hp"
)

var knownVerbs = map[Verb]struct{}{
	VerbTakeAction: {}, VerbManageBio: {}, VerbMute: {}, VerbKick: {}, VerbBan: {},
	VerbWarn: {}, VerbCancel: {}, VerbAllowBio: {}, VerbDenyBio: {},
	VerbSettings: {}, VerbToggle: {}, VerbWelcome: {}, VerbClose: {}, VerbHelp: {},
}

// Callback is the decoded form of act:<verb>:<user>:<group>[:<arg>], ids in base 36.
type Callback struct {
	Verb    Verb
	UserID  int64
	GroupID int64
	Arg     string
}

func (c Callback) Encode() (string, error) {
	parts := []string{
		callbackPrefix,
		string(c.Verb),
		strconv.FormatInt(c.UserID, 36),
		strconv.FormatInt(c.GroupID, 36),
	}
	if c.Arg != "" {
		if strings.Contains(c.Arg, ":") {
			return "", fmt.Errorf("callback arg %q contains a separator", c.Arg)
		}
		parts = append(parts, c.Arg)
	}
	data := strings.Join(parts, ":")
	if len(data) > MaxCallbackLen {
		return "", fmt.Errorf("callback data is %d bytes, limit %d", len(data), MaxCallbackLen)
	}
	return data, nil
}

// MustEncode is for payloads built from known verbs and ids, which always fit.
func (c Callback) MustEncode() string {
	data, err := c.Encode()
	if err != nil {
		panic(err)
	}
	return data
}

func IsCallback(data string) bool {
	return strings.HasPrefix(data, callbackPrefix+":")
}

func DecodeCallback(data string) (Callback, error) {
	parts := strings.Split(data, ":")
	if len(parts) < 4 || len(parts) > 5 || parts[0] != callbackPrefix {
		return Callback{}, fmt.Errorf("malformed callback %q", data)
	}
	verb := Verb(parts[1])
	if _, ok := knownVerbs[verb]; !ok {
		return Callback{}, fmt.Errorf("unknown callback verb %q", parts[1])
	}
	userID, err := strconv.ParseInt(parts[2], 36, 64)
	if err != nil {
		return Callback{}, fmt.Errorf("invalid user id: %w", err)
	}
	groupID, err := strconv.ParseInt(parts[3], 36, 64)
	if err != nil {
		return Callback{}, fmt.Errorf("invalid group id: %w", err)
	}
	c := Callback{Verb: verb, UserID: userID, GroupID: groupID}
	if len(parts) == 5 {
		c.Arg = parts[4]
	}
	return c, nil
}
