// Package checkpoint lists known commitment tree states so a wallet can
// start scanning from a recent height instead of sapling activation.
package checkpoint

import (
	"github.com/suffix-labs/pivx-shield/pkg/consensus"
	"github.com/suffix-labs/pivx-shield/pkg/merkle"
)

// Checkpoint is the commitment tree after block Height.
type Checkpoint struct {
	Height  uint32 `json:"height"`
	TreeHex string `json:"tree"`
}

// Tree decodes the checkpoint tree.
func (c Checkpoint) Tree() (*merkle.CommitmentTree, error) {
	return merkle.TreeFromHex(c.TreeHex)
}

// emptyTree is the encoding of a tree with no leaves.
const emptyTree = "000000"

var checkpoints = map[string][]Checkpoint{
	consensus.MainNet.Name: {
		{Height: 0, TreeHex: emptyTree},
	},
	consensus.TestNet.Name: {
		{Height: 1125777, TreeHex: "018c325f63f5cc98541cfef957f64845c86cf928e317ecc71a14debd364c7b8f57013c6f50deb5f788d5ac9105915ab9cbcda21a101d267c6424aa75b6e8df969e480d00016a2b0e3728a820b7982d81c87b80468ce65a4081843b890307115ca896416f3901e105bf42db29eca36e7235bd55546726753d1f967c3f284e243cbb3b3375d95a01a3ce8339e68a22d91b0750ef45468efe763e3d5e3a6e59809ddadcc94fe73c6c01494803bd8e6b730cb277701c613a4e7355cb54f79653724618e1436c02fca30c0177d25b5ed812af45eb46b54bc37c3fbe08fdfb4d952bb917fe59187bc78c42640001088b8a9fc4769017f3fdf865637e5cebbeaf7a4c643247723bf009da5eb1e4340001e877753448933a336fcf9399cc3dcd357344510c79db717e976979cb2eab612d0001cb846820acd916b4ea03b0a222b3eae8704bbd5365f105156041c578bd214c3201e03719b3810c7a9eaf6680ad3c60fb5ffdb0106975c952ef173c3e8cde943b03"},
	},
}

// All returns the checkpoints of net in ascending height order.
func All(net *consensus.Network) []Checkpoint {
	return append([]Checkpoint(nil), checkpoints[net.Name]...)
}

// Closest returns the highest checkpoint of net strictly below height.
func Closest(net *consensus.Network, height uint32) (Checkpoint, bool) {
	list := checkpoints[net.Name]
	for i := len(list) - 1; i >= 0; i-- {
		if list[i].Height < height {
			return list[i], true
		}
	}
	return Checkpoint{}, false
}
