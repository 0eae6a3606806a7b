/*
 * @Description: 有序 JSON 值类型，用于构建编辑器配置等嵌套结构
 * @Author: 安知鱼
 * @Date: 2025-06-26 11:59:31
 * @LastEditTime: 2025-10-16 14:40:12
 * @LastEditors: 安知鱼
 */
package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// Kind 标识 Value 中实际保存的 JSON 类型
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "null"
	}
}

// Member 是对象中的一个键值对。
type Member struct {
	Key   string
	Value Value
}

// Value 是一个可辨识的 JSON 值（对象、数组、字符串、数字、布尔、null）。
// 对象保留字段的插入顺序，因此相同的输入总是序列化出完全相同的字节。
// 零值即为 null。
type Value struct {
	kind    Kind
	boolean bool
	text    string // 字符串内容，或数字的原始文本
	items   []Value
	members []Member
}

// Null 返回 null 值
func Null() Value { return Value{} }

// Bool 构造布尔值
func Bool(b bool) Value { return Value{kind: KindBool, boolean: b} }

// String 构造字符串值
func String(s string) Value { return Value{kind: KindString, text: s} }

// Int 构造整数值
func Int(n int64) Value { return Value{kind: KindNumber, text: strconv.FormatInt(n, 10)} }

// Number 以原始文本构造数字值，文本必须是合法的 JSON 数字
func Number(n json.Number) Value { return Value{kind: KindNumber, text: n.String()} }

// Array 构造数组值
func Array(items ...Value) Value {
	return Value{kind: KindArray, items: append([]Value{}, items...)}
}

// Object 构造对象值，字段按传入顺序保存
func Object(members ...Member) Value {
	return Value{kind: KindObject, members: append([]Member{}, members...)}
}

// Field 是构造 Member 的简写
func Field(key string, v Value) Member {
	return Member{Key: key, Value: v}
}

// Kind 返回值的类型
func (v Value) Kind() Kind { return v.kind }

// IsNull 判断是否为 null
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool 返回布尔内容
func (v Value) AsBool() (bool, bool) { return v.boolean, v.kind == KindBool }

// AsString 返回字符串内容
func (v Value) AsString() (string, bool) { return v.text, v.kind == KindString }

// AsNumber 返回数字的原始文本
func (v Value) AsNumber() (json.Number, bool) { return json.Number(v.text), v.kind == KindNumber }

// Len 返回数组元素个数或对象字段个数
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.items)
	case KindObject:
		return len(v.members)
	}
	return 0
}

// Index 返回数组中第 i 个元素
func (v Value) Index(i int) (Value, bool) {
	if v.kind != KindArray || i < 0 || i >= len(v.items) {
		return Value{}, false
	}
	return v.items[i], true
}

// Keys 按顺序返回对象的所有字段名
func (v Value) Keys() []string {
	if v.kind != KindObject {
		return nil
	}
	keys := make([]string, 0, len(v.members))
	for _, m := range v.members {
		keys = append(keys, m.Key)
	}
	return keys
}

// Get 返回对象中指定字段的值；重复字段以最后一个为准
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindObject {
		return Value{}, false
	}
	for i := len(v.members) - 1; i >= 0; i-- {
		if v.members[i].Key == key {
			return v.members[i].Value, true
		}
	}
	return Value{}, false
}

// Path 沿着多级字段名取值，例如 Path("document", "permissions", "edit")
func (v Value) Path(keys ...string) (Value, bool) {
	cur := v
	for _, key := range keys {
		next, ok := cur.Get(key)
		if !ok {
			return Value{}, false
		}
		cur = next
	}
	return cur, true
}

// With 返回一个设置了指定字段的新对象，原对象不受影响。
// 字段已存在时原位替换，否则追加到末尾。
func (v Value) With(key string, val Value) Value {
	if v.kind != KindObject {
		return Object(Field(key, val))
	}
	members := make([]Member, 0, len(v.members)+1)
	replaced := false
	for _, m := range v.members {
		if m.Key == key {
			members = append(members, Member{Key: key, Value: val})
			replaced = true
			continue
		}
		members = append(members, m)
	}
	if !replaced {
		members = append(members, Member{Key: key, Value: val})
	}
	return Value{kind: KindObject, members: members}
}

// Without 返回移除了指定字段的新对象
func (v Value) Without(key string) Value {
	if v.kind != KindObject {
		return v
	}
	members := make([]Member, 0, len(v.members))
	for _, m := range v.members {
		if m.Key != key {
			members = append(members, m)
		}
	}
	return Value{kind: KindObject, members: members}
}

// Interface 将值转换为 encoding/json 的通用表示（map[string]interface{}、[]interface{} 等）。
// 数字保持为 json.Number，避免精度丢失。
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindBool:
		return v.boolean
	case KindNumber:
		return json.Number(v.text)
	case KindString:
		return v.text
	case KindArray:
		out := make([]interface{}, len(v.items))
		for i, item := range v.items {
			out[i] = item.Interface()
		}
		return out
	case KindObject:
		out := make(map[string]interface{}, len(v.members))
		for _, m := range v.members {
			out[m.Key] = m.Value.Interface()
		}
		return out
	default:
		return nil
	}
}

// MarshalJSON 按字段插入顺序输出 JSON
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) encode(buf *bytes.Buffer) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.boolean))
	case KindNumber:
		if !json.Valid([]byte(v.text)) {
			return fmt.Errorf("非法的 JSON 数字: %q", v.text)
		}
		buf.WriteString(v.text)
	case KindString:
		return writeString(buf, v.text)
	case KindArray:
		buf.WriteByte('[')
		for i, item := range v.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindObject:
		buf.WriteByte('{')
		for i, m := range v.members {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeString(buf, m.Key); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := m.Value.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	}
	return nil
}

func writeString(buf *bytes.Buffer, s string) error {
	encoded, err := json.Marshal(s)
	if err != nil {
		return err
	}
	buf.Write(encoded)
	return nil
}

// UnmarshalJSON 解析任意 JSON，并保留对象字段顺序
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Parse 将 JSON 文本解析为 Value，尾部多余内容视为错误
func Parse(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return Value{}, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Value{}, errors.New("JSON 文本末尾存在多余内容")
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			members := []Member{}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return Value{}, fmt.Errorf("对象字段名必须是字符串，实际为 %v", keyTok)
				}
				val, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				members = append(members, Member{Key: key, Value: val})
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return Value{kind: KindObject, members: members}, nil
		case '[':
			items := []Value{}
			for dec.More() {
				item, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				items = append(items, item)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return Value{kind: KindArray, items: items}, nil
		default:
			return Value{}, fmt.Errorf("意外的分隔符 %q", t)
		}
	case bool:
		return Bool(t), nil
	case json.Number:
		return Number(t), nil
	case string:
		return String(t), nil
	case nil:
		return Null(), nil
	default:
		return Value{}, fmt.Errorf("无法识别的 JSON 片段: %v", tok)
	}
}
