package stratum

// Message constants
const (
	MsgRootShort = "A layered game mod manager and merge engine"
	MsgRootLong = `stratum installs mod packages, merges their changes onto the baseline
game assets in priority order, and deploys the merged result to your
runtime's mod folder by copy, hardlink or symlink.

Mods contribute structural diffs rather than whole files wherever the
format allows, so many mods touching the same resource compose cleanly
instead of clobbering each other.`

	MsgFlagVerbose = "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)"
)
