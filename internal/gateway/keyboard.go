package gateway

import (
	"regexp"
	"strconv"

	"github.com/user/mediagate/internal/gate"
	"github.com/user/mediagate/internal/media"
	"github.com/user/mediagate/internal/types"
)

var selectionPattern = regexp.MustCompile(`^download_(\d+)(?:_([0-9a-v]{20}))?$`)

// SelectionAction builds the action token for variant index of set.
func SelectionAction(set *types.MediaSet, index int) string {
	return "download_" + strconv.Itoa(index) + "_" + string(set.Token)
}

// ParseSelection decodes a selection action token. Tokens without a set
// token resolve against whatever set is current.
func ParseSelection(action string) (int, types.SetToken, bool) {
	m := selectionPattern.FindStringSubmatch(action)
	if m == nil {
		return 0, "", false
	}
	index, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, "", false
	}
	return index, types.SetToken(m[2]), true
}

// VariantKeyboard lays out one button per variant, two per row.
func VariantKeyboard(set *types.MediaSet) types.Keyboard {
	var kb types.Keyboard
	for i := 0; i < len(set.Variants); i += 2 {
		row := []types.Button{{Text: media.VariantLabel(set.Variants[i]), Action: SelectionAction(set, i)}}
		if i+1 < len(set.Variants) {
			row = append(row, types.Button{Text: media.VariantLabel(set.Variants[i+1]), Action: SelectionAction(set, i+1)})
		}
		kb = append(kb, row)
	}
	return kb
}

// JoinKeyboard is attached to the join prompt.
func JoinKeyboard(channelURL string) types.Keyboard {
	return types.Keyboard{
		{{Text: "Join Channel", URL: channelURL}},
		{{Text: "Joined ✅", Action: gate.ReleaseAction}},
	}
}

// ProceedKeyboard is attached to the "you may proceed" acknowledgement.
func ProceedKeyboard(channelURL, developerURL string) types.Keyboard {
	return types.Keyboard{
		{{Text: "Join Channel", URL: channelURL}, {Text: "Developer", URL: developerURL}},
	}
}
