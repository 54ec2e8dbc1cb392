package domain

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"sort"
)

// identityVersion is mixed into every key so a change of encoding never
// collides with keys already stored.
const identityVersion = "result-identity/v1"

// IdentityKey returns the canonical identity digest of a result payload.
//
// Two payloads share a key iff they have the same portal, every scalar field
// is equal (an absent field only equals an absent field), and their tag and
// group sets are equal. Tag and group order and duplicates do not matter.
func IdentityKey(p ResultPayload) string {
	h := sha256.New()
	writeString(h, identityVersion)
	writeString(h, p.Portal)

	writeString(h, p.Title)
	writeString(h, p.URL)
	writeString(h, p.Description)
	writeOptional(h, p.OwnerOrg)
	writeOptional(h, p.OwnerOrgDescription)
	writeOptional(h, p.Maintainer)
	writeOptional(h, p.DatasetPublicationDate)
	writeOptional(h, p.DatasetModificationDate)
	writeOptional(h, p.MetadataCreationDate)
	writeOptional(h, p.MetadataModificationDate)

	tags := CanonicalTags(p.Tags)
	writeLen(h, len(tags))
	for _, t := range tags {
		writeString(h, t)
	}

	groups := CanonicalGroups(p.Groups)
	writeLen(h, len(groups))
	for _, g := range groups {
		writeString(h, g.Name)
		writeOptional(h, g.Description)
	}

	return hex.EncodeToString(h.Sum(nil))
}

// CanonicalTags returns the sorted, de-duplicated tag names.
func CanonicalTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// CanonicalGroups returns the de-duplicated groups ordered by name, then by
// description with an absent description first.
func CanonicalGroups(groups []GroupRef) []GroupRef {
	if len(groups) == 0 {
		return nil
	}
	out := make([]GroupRef, 0, len(groups))
	for _, g := range groups {
		dup := false
		for _, o := range out {
			if sameGroup(o, g) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		di, dj := out[i].Description, out[j].Description
		switch {
		case di == nil:
			return dj != nil
		case dj == nil:
			return false
		default:
			return *di < *dj
		}
	})
	return out
}

func sameGroup(a, b GroupRef) bool {
	if a.Name != b.Name {
		return false
	}
	if a.Description == nil || b.Description == nil {
		return a.Description == nil && b.Description == nil
	}
	return *a.Description == *b.Description
}

func writeLen(h hash.Hash, n int) {
	var buf [binary.MaxVarintLen64]byte
	k := binary.PutUvarint(buf[:], uint64(n))
	h.Write(buf[:k])
}

func writeString(h hash.Hash, s string) {
	writeLen(h, len(s))
	h.Write([]byte(s))
}

func writeOptional(h hash.Hash, s *string) {
	if s == nil {
		h.Write([]byte{0})
		return
	}
	h.Write([]byte{1})
	writeString(h, *s)
}
