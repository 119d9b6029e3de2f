package element

// Policy answers ownership and visibility questions for one acting user.
// All methods are pure predicates over the instance and permission state.
type Policy struct {
	perms Permissions
	user  string
}

// NewPolicy creates a policy for user.
func NewPolicy(perms Permissions, user string) Policy {
	return Policy{perms: perms, user: user}
}

// User returns the acting user.
func (p Policy) User() string { return p.user }

// May reports whether the acting user holds permission id.
func (p Policy) May(id string) bool { return p.perms.May(p.user, id) }

// HasOverriding reports whether the acting user holds general.<how>_<type>.
func (p Policy) HasOverriding(t *Type, how string) bool {
	return p.May(t.OverridingPermission(how))
}

// NeedOverriding fails with Unauthorized unless HasOverriding holds.
func (p Policy) NeedOverriding(t *Type, how string) error {
	if !p.HasOverriding(t, how) {
		return &UnauthorizedError{Op: how, Type: t.Phrase("title_plural")}
	}
	return nil
}

// IsMine reports whether the acting user owns inst.
func (p Policy) IsMine(inst *Instance) bool {
	return !inst.IsBuiltin() && inst.Owner() == p.user
}

// IsPublic reports whether inst is published. Besides the flag this needs
// the owner to hold the publish permission; builtins are exempt.
func (p Policy) IsPublic(inst *Instance) bool {
	if !inst.PublicFlag() {
		return false
	}
	return inst.IsBuiltin() || p.perms.May(inst.Owner(), inst.typ.permPublish())
}

// IsPublicForced reports whether inst is public and its owner may force
// it over builtin instances of the same name.
func (p Policy) IsPublicForced(inst *Instance) bool {
	return p.IsPublic(inst) && !inst.IsBuiltin() && p.perms.May(inst.Owner(), inst.typ.permForce())
}

// MaySee reports whether the acting user may see inst. Instances without a
// declared instance permission are visible to everyone.
func (p Policy) MaySee(inst *Instance) bool {
	id := inst.typ.InstancePermission(inst.Name())
	return !p.perms.Exists(id) || p.May(id)
}

// MayDelete reports whether the acting user may delete inst.
func (p Policy) MayDelete(inst *Instance) bool {
	switch {
	case inst.IsBuiltin():
		return false
	case p.IsMine(inst):
		return true
	default:
		return p.May(inst.typ.permDeleteForeign())
	}
}
