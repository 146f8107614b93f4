package profiles

// Message constants
const (
	MsgShort = "Manage named profiles"
	MsgLong  = `Profiles are independent ordered mod lists. All profiles share the same
mod storage, but each keeps its own priorities, enabled set and option
selections. Each platform remembers which profile is active.`

	MsgListShort = "List profiles"
	MsgShowShort = "Show a profile's mod order"
	MsgUseShort  = "Switch the active profile for the current platform"

	MsgNoProfiles   = "No profiles yet. Installing a mod creates the Default profile."
	MsgEmptyProfile = "Profile %q has no mods."
	MsgSwitched     = "Active profile is now %q"
)
