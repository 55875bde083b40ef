package browse

// CommandKind identifies a UI command
type CommandKind int

const (
	CmdNavigate CommandKind = iota
	CmdHome
	CmdEnd
	CmdSelect
	CmdActivateSearch
	CmdTypeSearch
	CmdConfirmSearch
	CmdCancelSearch
	CmdTriggerRefresh
	CmdToggleHelp
	CmdQuit
)

// Command is one input from the UI collaborator
type Command struct {
	Kind  CommandKind
	Delta int    // CmdNavigate
	Text  string // CmdTypeSearch: the full search text, not a single key
}

func Navigate(delta int) Command     { return Command{Kind: CmdNavigate, Delta: delta} }
func TypeSearch(text string) Command { return Command{Kind: CmdTypeSearch, Text: text} }

// EffectKind tells the caller what, if anything, to do after a command
type EffectKind int

const (
	EffectNone EffectKind = iota
	EffectSelected
	EffectRefresh
	EffectQuit
)

// Effect is the outcome of Session.Apply
type Effect struct {
	Kind       EffectKind
	SelectedID int   // EffectSelected and EffectRefresh: record under the cursor, 0 if none
	RefreshIDs []int // EffectRefresh: ids to re-fetch, selected first
}
