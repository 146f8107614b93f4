package deploy

// Message constants
const (
	MsgShort = "Merge pending changes and write them to the output tree"
	MsgLong  = `The 'deploy' command recomputes any stale merged resources, diffs the
result against what was last deployed, and applies only the difference
using the configured method (copy, hardlink or symlink).

Changing the output path, method or layout in settings triggers a full
reconcile: the previous output's entries are removed before the new
configuration is written out.`

	MsgExample = `  # Deploy pending changes
  stratum deploy

  # Recompute everything from scratch, then deploy
  stratum deploy --refresh

  # See what would change
  stratum deploy --dry-run`

	MsgDeploying      = "Deploying"
	MsgNothingPending = "Everything is already deployed."
	MsgDryRun         = "Would deploy %d added, %d modified, %d removed"
	MsgDeployed       = "Deployed %d added, %d modified, %d removed"
)
