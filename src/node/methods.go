package node

import (
	"github.com/mosaicnetworks/scenegraph/src/common"
	"github.com/mosaicnetworks/scenegraph/src/field"
)

// Introspection methods. They must run on the thread owning the node.
const (
	MethodGetChildCount = "getChildCount"
	MethodGetChildren   = "getChildren"
	MethodGetFields     = "getFields"
	MethodGetFieldTypes = "getFieldTypes"
	MethodHasField      = "hasField"
	MethodFindNode      = "findNode"
	MethodIsSubtype     = "isSubtype"
	MethodSubtype       = "subtype"
	MethodGetParent     = "getParent"
)

// Call runs an introspection method. If another live thread owns the node,
// the call is forwarded to it and blocks until it answers.
func (n *Node) Call(method string, args ...interface{}) (interface{}, error) {
	if s := n.tree.sync; s != nil && n.owner != n.tree.thread {
		if !s.IsAlive(n.owner) {
			n.adopt()
		} else {
			res, ok := s.RequestMethodCall(n, method, args)
			if !ok {
				return nil, common.NewSyncErr(n.owner, "method:"+method, common.Timeout)
			}
			return res, nil
		}
	}
	return n.CallLocal(method, args...)
}

// CallLocal runs an introspection method on the local copy of the node.
func (n *Node) CallLocal(method string, args ...interface{}) (interface{}, error) {
	switch method {
	case MethodGetChildCount:
		return int32(len(n.children)), nil

	case MethodGetChildren:
		count := intArg(args, 0, -1)
		index := intArg(args, 1, 0)
		res := []interface{}{}
		if index < 0 || index >= len(n.children) {
			return res, nil
		}
		end := len(n.children)
		if count >= 0 && index+count < end {
			end = index + count
		}
		for _, c := range n.children[index:end] {
			if c == nil {
				res = append(res, field.Invalid)
				continue
			}
			res = append(res, c)
		}
		return res, nil

	case MethodGetFields:
		res := make(map[string]interface{}, len(n.fields))
		for name, f := range n.fields {
			if f.Hidden() {
				continue
			}
			res[name] = f.Value()
		}
		return res, nil

	case MethodGetFieldTypes:
		res := make(map[string]interface{}, len(n.fields)+len(n.aliases))
		for name := range n.fields {
			if k, ok := n.fieldKind(name); ok {
				res[name] = k.String()
			}
		}
		for name := range n.aliases {
			if k, ok := n.fieldKind(name); ok {
				res[name] = k.String()
			}
		}
		return res, nil

	case MethodHasField:
		return n.HasField(stringArg(args, 0)), nil

	case MethodFindNode:
		if res := n.FindNode(stringArg(args, 0)); res != nil {
			return res, nil
		}
		return field.Invalid, nil

	case MethodIsSubtype:
		return n.IsSubtype(stringArg(args, 0)), nil

	case MethodSubtype:
		return n.subtype, nil

	case MethodGetParent:
		if n.parent != nil {
			return n.parent, nil
		}
		return field.Invalid, nil
	}

	return nil, common.NewFieldErr(n.address, common.UnknownMethod, method)
}

func intArg(args []interface{}, i int, def int) int {
	if i >= len(args) {
		return def
	}
	v, ok := field.Convert(field.KindLongInteger, args[i])
	if !ok {
		return def
	}
	return int(v.(int64))
}

func stringArg(args []interface{}, i int) string {
	if i >= len(args) {
		return ""
	}
	s, _ := args[i].(string)
	return s
}
