package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// registryABIJSON covers the registry entry points this service reads and the
// ones it encodes for the user's signing client.
const registryABIJSON = `[
  {"type":"function","name":"getActiveGroups","stateMutability":"view",
   "inputs":[{"name":"offset","type":"uint256"},{"name":"limit","type":"uint256"}],
   "outputs":[{"name":"","type":"tuple[]","components":[
     {"name":"id","type":"uint256"},
     {"name":"name","type":"string"},
     {"name":"description","type":"string"},
     {"name":"contributionAmount","type":"uint256"},
     {"name":"cycleDuration","type":"uint256"},
     {"name":"currentParticipants","type":"uint256"},
     {"name":"maxParticipants","type":"uint256"},
     {"name":"creator","type":"address"},
     {"name":"groupContract","type":"address"},
     {"name":"createdAt","type":"uint256"},
     {"name":"isActive","type":"bool"}]}]},
  {"type":"function","name":"getGroup","stateMutability":"view",
   "inputs":[{"name":"groupId","type":"uint256"}],
   "outputs":[{"name":"","type":"tuple","components":[
     {"name":"id","type":"uint256"},
     {"name":"name","type":"string"},
     {"name":"description","type":"string"},
     {"name":"contributionAmount","type":"uint256"},
     {"name":"cycleDuration","type":"uint256"},
     {"name":"currentParticipants","type":"uint256"},
     {"name":"maxParticipants","type":"uint256"},
     {"name":"creator","type":"address"},
     {"name":"groupContract","type":"address"},
     {"name":"createdAt","type":"uint256"},
     {"name":"isActive","type":"bool"}]}]},
  {"type":"function","name":"createGroup","stateMutability":"nonpayable",
   "inputs":[
     {"name":"contributionAmount","type":"uint256"},
     {"name":"cycleDuration","type":"uint256"},
     {"name":"maxParticipants","type":"uint256"},
     {"name":"name","type":"string"},
     {"name":"description","type":"string"}],
   "outputs":[{"name":"groupId","type":"uint256"}]},
  {"type":"function","name":"joinGroup","stateMutability":"nonpayable",
   "inputs":[{"name":"groupId","type":"uint256"}],"outputs":[]}
]`

const groupABIJSON = `[
  {"type":"function","name":"getUserStatus","stateMutability":"view",
   "inputs":[{"name":"user","type":"address"}],
   "outputs":[
     {"name":"isMember","type":"bool"},
     {"name":"hasContributedThisCycle","type":"bool"},
     {"name":"totalContributions","type":"uint256"},
     {"name":"hasReceivedPayout","type":"bool"}]},
  {"type":"function","name":"getCurrentCycleInfo","stateMutability":"view",
   "inputs":[],
   "outputs":[
     {"name":"cycleNumber","type":"uint256"},
     {"name":"poolBalance","type":"uint256"},
     {"name":"contributionsThisCycle","type":"uint256"},
     {"name":"currentRecipient","type":"address"},
     {"name":"timeRemaining","type":"int256"}]},
  {"type":"function","name":"getPayoutHistory","stateMutability":"view",
   "inputs":[],
   "outputs":[{"name":"","type":"tuple[]","components":[
     {"name":"recipient","type":"address"},
     {"name":"amount","type":"uint256"},
     {"name":"timestamp","type":"uint256"}]}]},
  {"type":"function","name":"getParticipants","stateMutability":"view",
   "inputs":[],"outputs":[{"name":"","type":"address[]"}]},
  {"type":"function","name":"contribute","stateMutability":"payable",
   "inputs":[],"outputs":[]}
]`

var (
	// RegistryABI is the parsed registry contract interface.
	RegistryABI = mustParseABI(registryABIJSON)
	// GroupABI is the parsed per-group contract interface.
	GroupABI = mustParseABI(groupABIJSON)
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic("chain: invalid contract abi: " + err.Error())
	}
	return parsed
}
