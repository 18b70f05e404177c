package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnknownAction is returned for callback data outside the known set.
var ErrUnknownAction = errors.New("unknown action")

// Action is a decoded chat command or inline button press. The set of
// implementations is closed; Router.Dispatch switches over all of them.
type Action interface {
	isAction()
}

type (
	StartAction          struct{}
	HelpAction           struct{}
	BrowseAction         struct{}
	CreateGroupAction    struct{}
	MyGroupsAction       struct{}
	ContributeMenuAction struct{}
	StatusAction         struct{}
	HistoryAction        struct{}
	CancelAction         struct{}

	JoinGroupAction    struct{ GroupID uint64 }
	GroupDetailsAction struct{ GroupID uint64 }
	ContributeAction   struct{ GroupID uint64 }
	GroupStatusAction  struct{ GroupID uint64 }

	// TextAction is plain text, routed to the active conversation if any.
	TextAction struct{ Body string }
	// UnknownCommandAction is a slash command the bot does not know.
	UnknownCommandAction struct{ Command string }
)

func (StartAction) isAction()          {}
func (HelpAction) isAction()           {}
func (BrowseAction) isAction()         {}
func (CreateGroupAction) isAction()    {}
func (MyGroupsAction) isAction()       {}
func (ContributeMenuAction) isAction() {}
func (StatusAction) isAction()         {}
func (HistoryAction) isAction()        {}
func (CancelAction) isAction()         {}
func (JoinGroupAction) isAction()      {}
func (GroupDetailsAction) isAction()   {}
func (ContributeAction) isAction()     {}
func (GroupStatusAction) isAction()    {}
func (TextAction) isAction()           {}
func (UnknownCommandAction) isAction() {}

// Callback data written on inline buttons.
const (
	dataBrowse         = "browse_groups"
	dataCreate         = "create_group"
	dataMyGroups       = "my_groups"
	dataContributeMenu = "contribute_menu"
	dataStatus         = "status"
	dataHelp           = "help"

	prefixJoin        = "join_group_"
	prefixDetails     = "group_details_"
	prefixContribute  = "contribute_"
	prefixGroupStatus = "group_status_"
)

var commands = map[string]Action{
	"/start":      StartAction{},
	"/help":       HelpAction{},
	"/browse":     BrowseAction{},
	"/create":     CreateGroupAction{},
	"/mygroups":   MyGroupsAction{},
	"/contribute": ContributeMenuAction{},
	"/status":     StatusAction{},
	"/history":    HistoryAction{},
	"/cancel":     CancelAction{},
}

var fixedCallbacks = map[string]Action{
	dataBrowse:         BrowseAction{},
	dataCreate:         CreateGroupAction{},
	dataMyGroups:       MyGroupsAction{},
	dataContributeMenu: ContributeMenuAction{},
	dataStatus:         StatusAction{},
	dataHelp:           HelpAction{},
}

// ParseCommand decodes a chat message. Text that is not a slash command
// becomes a TextAction.
func ParseCommand(text string) Action {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "/") {
		return TextAction{Body: text}
	}
	name := strings.Fields(trimmed)[0]
	if at := strings.IndexByte(name, '@'); at > 0 {
		name = name[:at]
	}
	name = strings.ToLower(name)
	if action, ok := commands[name]; ok {
		return action
	}
	return UnknownCommandAction{Command: name}
}

// ParseCallback decodes inline button data.
func ParseCallback(data string) (Action, error) {
	if action, ok := fixedCallbacks[data]; ok {
		return action, nil
	}
	for _, p := range []struct {
		prefix string
		build  func(uint64) Action
	}{
		{prefixJoin, func(id uint64) Action { return JoinGroupAction{GroupID: id} }},
		{prefixDetails, func(id uint64) Action { return GroupDetailsAction{GroupID: id} }},
		{prefixContribute, func(id uint64) Action { return ContributeAction{GroupID: id} }},
		{prefixGroupStatus, func(id uint64) Action { return GroupStatusAction{GroupID: id} }},
	} {
		raw, ok := strings.CutPrefix(data, p.prefix)
		if !ok {
			continue
		}
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrUnknownAction, data)
		}
		return p.build(id), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAction, data)
}

func joinData(id uint64) string        { return prefixJoin + strconv.FormatUint(id, 10) }
func detailsData(id uint64) string     { return prefixDetails + strconv.FormatUint(id, 10) }
func contributeData(id uint64) string  { return prefixContribute + strconv.FormatUint(id, 10) }
func groupStatusData(id uint64) string { return prefixGroupStatus + strconv.FormatUint(id, 10) }
