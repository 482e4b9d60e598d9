package node

import (
	"crypto/sha1" //nolint:gosec // content fingerprinting, not security.
	"encoding/hex"
	"hash"
	"maps"
	"slices"
	"strconv"
)

// Fingerprint returns a digest of the subtree's content: types, tokens, roles,
// properties and child order. Positions and IDs are ignored, so a parsed node
// and an identical synthesized one share a fingerprint.
func (targetNode *Node) Fingerprint() string {
	if targetNode == nil {
		return ""
	}

	hasher := sha1.New() //nolint:gosec // content fingerprinting, not security.
	writeSubtreeToHash(hasher, targetNode)

	return hex.EncodeToString(hasher.Sum(nil))
}

func writeSubtreeToHash(hasher hash.Hash, root *Node) {
	stack := []*Node{root}

	for len(stack) > 0 {
		curr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if curr == nil {
			hasher.Write([]byte{0})

			continue
		}

		writeNodeContentToHash(hasher, curr)

		for idx := len(curr.Children) - 1; idx >= 0; idx-- {
			stack = append(stack, curr.Children[idx])
		}
	}
}

// writeNodeContentToHash writes one node's own content, length-prefixed.
func writeNodeContentToHash(hasher hash.Hash, targetNode *Node) {
	writeField(hasher, string(targetNode.Type))
	writeField(hasher, targetNode.Token)

	for _, role := range targetNode.Roles {
		writeField(hasher, string(role))
	}

	for _, key := range slices.Sorted(maps.Keys(targetNode.Props)) {
		writeField(hasher, key)
		writeField(hasher, targetNode.Props[key])
	}

	writeField(hasher, strconv.Itoa(len(targetNode.Children)))
}

func writeField(hasher hash.Hash, value string) {
	hasher.Write([]byte{byte(len(value)), byte(len(value) >> 8)})
	hasher.Write([]byte(value))
}
