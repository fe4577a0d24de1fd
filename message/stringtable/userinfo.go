/*

The userinfo table special case: its per-entry user data is a
fixed-layout record rather than free-form bytes, decoded here into a
UserInfo and published by the caller into ParserState's users mapping.

*/

package stringtable

import "github.com/gethexdemo/tf2demo/bitstream"

// UserInfo is one player's entry in the userinfo string table.
type UserInfo struct {
	Name         string
	UserID       int32
	SteamID      string
	IsFakePlayer bool
	IsHLTV       bool
	CustomFiles  [4]uint32
}

const userInfoRecordSize = 32 + 4 + 33 + 4 + 32 + 1 + 1 + 4*4 + 1

// DecodeUserInfo decodes a userinfo table entry's user-data bytes.
func DecodeUserInfo(data []byte) (UserInfo, error) {
	var u UserInfo
	r := bitstream.NewReader(data)

	name, err := r.ReadSizedString(32)
	if err != nil {
		return u, err
	}
	u.Name = string(name)

	idv, err := r.ReadSigned(32)
	if err != nil {
		return u, err
	}
	u.UserID = int32(idv)

	guid, err := r.ReadSizedString(33)
	if err != nil {
		return u, err
	}
	u.SteamID = string(guid)

	if _, err = r.ReadUint(32); err != nil { // friends ID, unused
		return u, err
	}
	if _, err = r.ReadSizedString(32); err != nil { // friends name, unused
		return u, err
	}

	fake, err := r.ReadUint(8)
	if err != nil {
		return u, err
	}
	u.IsFakePlayer = fake != 0

	hltv, err := r.ReadUint(8)
	if err != nil {
		return u, err
	}
	u.IsHLTV = hltv != 0

	for i := range u.CustomFiles {
		v, err := r.ReadUint(32)
		if err != nil {
			return u, err
		}
		u.CustomFiles[i] = uint32(v)
	}

	if _, err = r.ReadUint(8); err != nil { // files downloaded, unused
		return u, err
	}

	return u, nil
}
