package core

// CommandType defines the type of command being dispatched.
type CommandType string

const (
	CmdSetEnabled         CommandType = "setEnabled"
	CmdSelectCamera       CommandType = "selectCamera"
	CmdSelectMicrophone   CommandType = "selectMicrophone"
	CmdSetHotkey          CommandType = "setHotkey"
	CmdSetToolbarPosition CommandType = "setToolbarPosition"
	CmdSetToolbarMonitor  CommandType = "setToolbarMonitor"
	CmdSetHideToolbar     CommandType = "setHideToolbarWhenUnmuted"
	CmdSelectOverlayImage CommandType = "selectOverlayImage"
	CmdClearOverlayImage  CommandType = "clearOverlayImage"
	CmdResync             CommandType = "resync"
	CmdVerifyStore        CommandType = "verifyStore"
)

// Command is the envelope for incoming requests to change settings.
type Command struct {
	Type    CommandType
	Payload map[string]interface{}
}

// CommandChannel is the single channel that the agent listens to for commands.
type CommandChannel chan Command
