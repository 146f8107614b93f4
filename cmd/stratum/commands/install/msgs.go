package install

// Message constants
const (
	MsgShort = "Install mod package(s) into the active profile"
	MsgLong  = `The 'install' command unpacks one or more .smod packages into mod
storage, adds them to the active profile at the highest priorities, and
recomputes the merged output. When the platform's deploy config has
auto enabled, the output is deployed immediately afterwards.

A corrupt or wrong-platform package does not stop the others; failures
are reported together at the end.`

	MsgExample = `  # Install a single mod
  stratum install cool-weapons.smod

  # Install several at once, highest priority last
  stratum install base-fixes.smod cool-weapons.smod retexture.smod

  # Install without remerging (merge later with 'stratum deploy')
  stratum install --no-merge big-overhaul.smod`

	MsgInstalling = "Installing mods"
	MsgMerged     = "Merged output covers %d paths"
)
