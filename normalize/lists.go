package normalize

// envelopeKeys are the wrapper keys a list response may hide its items under.
var envelopeKeys = []string{"data", "items", "results"}

// items extracts the object elements of a list payload. It accepts a bare
// array or an object wrapping the array under key or one of envelopeKeys.
func items(v any, key string) []Raw {
	list, ok := asList(v)
	if !ok {
		obj, isObj := asRaw(v)
		if !isObj {
			return nil
		}
		for _, k := range append([]string{key}, envelopeKeys...) {
			if list, ok = asList(obj[k]); ok {
				break
			}
		}
		if !ok {
			return nil
		}
	}

	out := make([]Raw, 0, len(list))
	for _, item := range list {
		if m, ok := asRaw(item); ok {
			out = append(out, m)
		}
	}
	return out
}

func UserList(v any) []User {
	raws := items(v, "users")
	out := make([]User, 0, len(raws))
	for _, r := range raws {
		out = append(out, NormalizeUser(r))
	}
	return out
}

// MemberList accepts either full user objects or bare ids, like Project.members.
func MemberList(v any) []UserRef {
	if obj, ok := asRaw(v); ok {
		return members(obj["members"])
	}
	return members(v)
}

func ProjectList(v any) []Project {
	raws := items(v, "projects")
	out := make([]Project, 0, len(raws))
	for _, r := range raws {
		out = append(out, NormalizeProject(r))
	}
	return out
}

func TaskList(v any) []Task {
	raws := items(v, "tasks")
	out := make([]Task, 0, len(raws))
	for _, r := range raws {
		out = append(out, NormalizeTask(r))
	}
	return out
}

func CommentList(v any) []Comment {
	raws := items(v, "comments")
	out := make([]Comment, 0, len(raws))
	for _, r := range raws {
		out = append(out, NormalizeComment(r))
	}
	return out
}

// Object extracts a single entity payload. An object carrying its own id is
// returned as is; otherwise an envelope under key or one of envelopeKeys is
// unwrapped.
func Object(v any, key string) (Raw, bool) {
	obj, ok := asRaw(v)
	if !ok {
		return nil, false
	}
	if obj.Has("id", "_id") {
		return obj, true
	}
	for _, k := range append([]string{key}, envelopeKeys...) {
		if inner, ok := asRaw(obj[k]); ok {
			return inner, true
		}
	}
	return obj, true
}
