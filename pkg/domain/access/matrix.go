package access

// Command identifies a bot command for permission checks.
type Command string

// Bot commands known to the permission matrix.
const (
	CommandCredits            Command = "credits"
	CommandCreditsLeaderboard Command = "creditsleaderboard"
	CommandAddCredits         Command = "addcredits"
	CommandSubCredits         Command = "subcredits"
	CommandSetCredits         Command = "setcredits"
	CommandWipeCredits        Command = "wipecredits"
	CommandWhitelist          Command = "whitelist"
	CommandUnwhitelist        Command = "unwhitelist"
	CommandRanks              Command = "ranks"
	CommandGetRank            Command = "getrank"
	CommandSetRank            Command = "setrank"
	CommandUnrank             Command = "unrank"
	CommandRankAll            Command = "rankall"
)

// alwaysAllowed commands are permitted regardless of tier.
var alwaysAllowed = map[Command]bool{
	CommandCredits:            true,
	CommandCreditsLeaderboard: true,
}

// rankCommands manage ranks in the external group; restricted to
// owners and tag managers.
var rankCommands = map[Command]bool{
	CommandRanks:   true,
	CommandGetRank: true,
	CommandSetRank: true,
	CommandUnrank:  true,
	CommandRankAll: true,
}

// grantCommands mutate stored role grants or wipe the ledger; owners only.
var grantCommands = map[Command]bool{
	CommandWhitelist:   true,
	CommandUnwhitelist: true,
	CommandWipeCredits: true,
}

// CanUse reports whether a tier may run a command.
func CanUse(tier Tier, cmd Command) bool {
	if alwaysAllowed[cmd] {
		return true
	}

	switch tier {
	case TierOwners:
		return true
	case TierTagManager:
		if rankCommands[cmd] {
			return true
		}
		return !grantCommands[cmd]
	case TierManager:
		return !grantCommands[cmd] && !rankCommands[cmd]
	case TierStaff:
		return cmd != CommandSetCredits && !grantCommands[cmd] && !rankCommands[cmd]
	default:
		return false
	}
}
