package codec

// IdentitySelfEncryption is a placeholder SelfEncryption that splits
// content into exactly one "chunk" (the content itself) and decrypts
// by returning the fetched bytes unchanged. It exists so cmd/anttp has
// a concrete SelfEncryption to construct clients and services with in
// the absence of the real self-encryption/erasure-coding scheme - that
// scheme is an external collaborator this module never implements, the
// same role internal/netclient's unconfigured Dialer plays for the
// storage network itself.
//
// A real deployment replaces this with a SelfEncryption backed by the
// actual splitting/encryption SDK; every caller here depends only on
// the SelfEncryption interface, so nothing downstream changes when
// that swap happens.
type IdentitySelfEncryption struct{}

func (IdentitySelfEncryption) DecryptChunk(dm DataMap, index int, raw []byte) ([]byte, error) {
	return raw, nil
}

func (IdentitySelfEncryption) Split(content []byte) (DataMap, [][]byte, error) {
	dm := DataMap{TotalSize: int64(len(content))}
	return dm, [][]byte{content}, nil
}

var _ SelfEncryption = IdentitySelfEncryption{}
