package pass

// AdminSet is a static AccessControl implementation: a contract owner plus a
// fixed set of additional administrators, loaded from configuration at boot.
type AdminSet struct {
	owner  [20]byte
	admins map[[20]byte]struct{}
}

// NewAdminSet constructs an access list with the supplied owner and admins.
func NewAdminSet(owner [20]byte, admins ...[20]byte) *AdminSet {
	set := &AdminSet{owner: owner, admins: make(map[[20]byte]struct{}, len(admins))}
	for _, admin := range admins {
		if !isZeroAddress(admin) {
			set.admins[admin] = struct{}{}
		}
	}
	return set
}

// IsOwnerOrAdmin reports whether the caller may use the administrative
// setters. The zero address never qualifies.
func (a *AdminSet) IsOwnerOrAdmin(caller [20]byte) bool {
	if a == nil || isZeroAddress(caller) {
		return false
	}
	if caller == a.owner {
		return true
	}
	_, ok := a.admins[caller]
	return ok
}
