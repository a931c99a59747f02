package wire


// IIDRecord is one entry of the IID block: the dense key it belongs to
// (redundant with the LUT, used to cross-check invariant 3 in §8) plus the
// domain and address byte strings.
type IIDRecord struct {
	Key     uint32
	Domain  []byte
	Address []byte
}

// EncodeIIDRecord serializes rec as
// { u32 key, u32 domain_len, u32 address_len, domain bytes, address bytes }.
func EncodeIIDRecord(rec IIDRecord) []byte {
	w := NewWriter()
	w.PutUint32(rec.Key)
	w.PutUint32(uint32(len(rec.Domain)))
	w.PutUint32(uint32(len(rec.Address)))
	w.PutBytes(rec.Domain)
	w.PutBytes(rec.Address)
	return w.Bytes()
}

// DecodeIIDRecord parses one record from buf. buf must contain exactly the
// record's bytes (the caller resolves it via a LUT BufLoc that is relative
// to the start of the IID block, per §4.4).
func DecodeIIDRecord(buf []byte) (IIDRecord, error) {
	r := NewReader(buf)
	key, err := r.Uint32()
	if err != nil {
		return IIDRecord{}, err
	}
	domainLen, err := r.Uint32()
	if err != nil {
		return IIDRecord{}, err
	}
	addrLen, err := r.Uint32()
	if err != nil {
		return IIDRecord{}, err
	}
	domain, err := r.Bytes(int(domainLen))
	if err != nil {
		return IIDRecord{}, err
	}
	addr, err := r.Bytes(int(addrLen))
	if err != nil {
		return IIDRecord{}, err
	}
	return IIDRecord{Key: key, Domain: domain, Address: addr}, nil
}

// IIDRecordSize returns the encoded size of an IID record without encoding it.
func IIDRecordSize(domainLen, addressLen int) int {
	return 4 + 4 + 4 + domainLen + addressLen
}

