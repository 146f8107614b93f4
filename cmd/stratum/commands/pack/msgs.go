package pack

// Message constants
const (
	MsgShort = "Build a .smod package from a mod folder"
	MsgLong  = `The 'pack' command turns a loose mod folder into a distributable .smod
package. The folder is laid out like the game tree, split into content/,
update/ and dlc/ subfolders, with an optional options/ subtree.

Structured files that exist in the configured baseline are stored as
compact diffs; everything else ships as whole files. Paths listed with
--override are stored raw and replace the merged result outright.`

	MsgExample = `  # Pack a mod folder
  stratum pack ./my-mod --name "My Mod" --mod-version 1.0.0 --author me

  # Pack with an explicit output path and a raw override
  stratum pack ./my-mod --name "My Mod" --mod-version 1.2.0 \
    -o dist/my-mod.smod --override content/Pack/TitleBG.pak`

	MsgPacked = "Packed %s (%d paths)"
)
