package mods

// Message constants
const (
	MsgShort = "List and manage installed mods"
	MsgLong  = `The 'mods' commands operate on the active profile: toggling, reordering
and option selection all mark the affected resource paths stale, so the
next merge or deploy recomputes exactly what changed.`

	MsgListShort    = "List installed mods with their profile state"
	MsgEnableShort  = "Enable a mod in the active profile"
	MsgDisableShort = "Disable a mod without uninstalling it"
	MsgMoveShort    = "Change a mod's priority"
	MsgMoveLong  = `Priority 0 is lowest; higher priorities win conflicts. Moving a mod
slides everything between its old and new slot, keeping priorities
contiguous.`
	MsgRemoveShort  = "Uninstall a mod from the active profile"
	MsgOptionsShort = "Select a mod's options"
	MsgOptionsLong  = `Replaces the mod's option selection with the named options. Calling
with no options clears the selection (required groups permitting).`

	MsgNoMods     = "No mods installed."
	MsgEnabled    = "Enabled %s"
	MsgDisabled   = "Disabled %s"
	MsgMoved      = "Moved %s to priority %d"
	MsgRemoved    = "Uninstalled %s"
	MsgOptionsSet = "Updated options for %s"
)
