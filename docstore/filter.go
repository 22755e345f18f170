// Created by Yanjunhui

package docstore

import (
	"fmt"
	"math"

	"go.mongodb.org/mongo-driver/bson"
)

// matchesFilter 判断文档是否匹配过滤条件
// 支持字段相等和 $eq/$ne/$gt/$gte/$lt/$lte 操作符，多个字段之间为 AND
// 与 MongoDB 一致：$ne 对缺失字段成立，其余操作符对缺失字段不成立
func matchesFilter(doc bson.D, filter bson.D) (bool, error) {
	for _, cond := range filter {
		value, present := lookup(doc, cond.Key)

		ops, isOps := cond.Value.(bson.D)
		if !isOps || len(ops) == 0 || len(ops[0].Key) == 0 || ops[0].Key[0] != '$' {
			// 隐式 $eq
			if !present || compareValues(value, cond.Value) != 0 {
				return false, nil
			}
			continue
		}

		for _, op := range ops {
			ok, err := matchOperator(op.Key, value, present, op.Value)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
	}
	return true, nil
}

func matchOperator(op string, value interface{}, present bool, operand interface{}) (bool, error) {
	if op == "$ne" {
		return !present || compareValues(value, operand) != 0, nil
	}
	if !present {
		return false, nil
	}
	c := compareValues(value, operand)
	switch op {
	case "$eq":
		return c == 0, nil
	case "$gt":
		return c > 0, nil
	case "$gte":
		return c >= 0, nil
	case "$lt":
		return c < 0, nil
	case "$lte":
		return c <= 0, nil
	default:
		return false, ErrBadValue(fmt.Sprintf("unknown operator: %s", op))
	}
}

// lookup 读取顶层字段
func lookup(doc bson.D, key string) (interface{}, bool) {
	for _, elem := range doc {
		if elem.Key == key {
			return elem.Value, true
		}
	}
	return nil, false
}

// compareValues 比较两个值：数字跨类型比较，字符串按字典序，其余按类型名排序
func compareValues(a, b interface{}) int {
	af, aNum := toFloat64(a)
	bf, bNum := toFloat64(b)
	switch {
	case aNum && bNum:
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	case aNum:
		return -1
	case bNum:
		return 1
	}
	as, aStr := a.(string)
	bs, bStr := b.(string)
	if aStr && bStr {
		switch {
		case as < bs:
			return -1
		case as > bs:
			return 1
		}
		return 0
	}
	at, bt := fmt.Sprintf("%T", a), fmt.Sprintf("%T", b)
	switch {
	case at < bt:
		return -1
	case at > bt:
		return 1
	}
	return 0
}

func toFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// toInt64 整数值读取；浮点数必须为整数
func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int64(n), true
	default:
		return 0, false
	}
}

// applyUpdate 应用更新操作符（$set、$inc、$unset）
// 不带 $ 前缀的字段按 $set 处理
func applyUpdate(doc *bson.D, update bson.D) error {
	for _, elem := range update {
		switch elem.Key {
		case "$set":
			setDoc, ok := elem.Value.(bson.D)
			if !ok {
				return ErrBadValue("$set value must be a document")
			}
			for _, setElem := range setDoc {
				setField(doc, setElem.Key, setElem.Value)
			}

		case "$unset":
			unsetDoc, ok := elem.Value.(bson.D)
			if !ok {
				return ErrBadValue("$unset value must be a document")
			}
			for _, unsetElem := range unsetDoc {
				removeField(doc, unsetElem.Key)
			}

		case "$inc":
			incDoc, ok := elem.Value.(bson.D)
			if !ok {
				return ErrBadValue("$inc value must be a document")
			}
			for _, incElem := range incDoc {
				if err := incrementField(doc, incElem.Key, incElem.Value); err != nil {
					return err
				}
			}

		default:
			if len(elem.Key) > 0 && elem.Key[0] == '$' {
				return ErrBadValue(fmt.Sprintf("unsupported update operator: %s", elem.Key))
			}
			setField(doc, elem.Key, elem.Value)
		}
	}
	return nil
}

// setField 设置文档字段
func setField(doc *bson.D, key string, value interface{}) {
	for i, elem := range *doc {
		if elem.Key == key {
			(*doc)[i].Value = value
			return
		}
	}
	*doc = append(*doc, bson.E{Key: key, Value: value})
}

// removeField 移除文档字段
func removeField(doc *bson.D, key string) {
	for i, elem := range *doc {
		if elem.Key == key {
			*doc = append((*doc)[:i], (*doc)[i+1:]...)
			return
		}
	}
}

// incrementField 增加字段值；整数相加保持 int64，字段不存在时直接设置
func incrementField(doc *bson.D, key string, incVal interface{}) error {
	for i, elem := range *doc {
		if elem.Key != key {
			continue
		}
		if cur, ok := toInt64(elem.Value); ok {
			if inc, ok := toInt64(incVal); ok {
				(*doc)[i].Value = cur + inc
				return nil
			}
		}
		cur, ok := toFloat64(elem.Value)
		inc, ok2 := toFloat64(incVal)
		if !ok || !ok2 {
			return ErrTypeMismatch(fmt.Sprintf("cannot apply $inc to field %q of type %T", key, elem.Value))
		}
		(*doc)[i].Value = cur + inc
		return nil
	}

	*doc = append(*doc, bson.E{Key: key, Value: incVal})
	return nil
}
