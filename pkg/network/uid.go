package network

import "github.com/gofrs/uuid"

type Uid string

const EmptyUid Uid = ""

func NewUid() Uid {
	id, err := uuid.NewV4()
	if err != nil {
		return EmptyUid
	}
	return Uid(id.String())
}

func ValidUid(u Uid) bool {
	_, err := uuid.FromString(string(u))
	return err == nil
}

func (u Uid) String() string { return string(u) }

func (u Uid) Short() string {
	if len(u) < 6 {
		return string(u)
	}
	return string(u)[:3] + "." + string(u)[len(u)-3:]
}
