package bcao

import (
	"encoding/base64"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"

	"gitee.com/czyczk/datawave/internal/utils/hexutils"
	"gitee.com/czyczk/datawave/pkg/models/survey"
)

var (
	timeType  = reflect.TypeOf(time.Time{})
	bytesType = reflect.TypeOf([]byte{})
)

// DecodeFields decodes the Move fields of a chain object into out. Nested `{type, fields}` wrappers, UID objects,
// millisecond timestamps and hex-encoded byte vectors are normalized along the way.
func DecodeFields(fields interface{}, out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			unwrapMoveValueHook,
			millisToTimeHook,
			stringToBytesHook,
		),
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return errors.Wrap(err, "无法创建解码器")
	}

	if err = decoder.Decode(fields); err != nil {
		return errors.Wrap(err, "无法解析链上对象字段")
	}

	return nil
}

// unwrapMoveValueHook strips the wrappers the node puts around nested Move values so that
// callers can ask for `x` regardless of whether it arrives as `x` or `{fields: {x}}`.
func unwrapMoveValueHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	m, ok := data.(map[string]interface{})
	if !ok {
		return data, nil
	}

	switch {
	case to == timeType:
		return data, nil
	case to.Kind() == reflect.Struct || to.Kind() == reflect.Map:
		if inner, ok := m["fields"].(map[string]interface{}); ok {
			return inner, nil
		}
	case to.Kind() == reflect.String:
		// UID { id: { id: "0x.." } } or ID { bytes: "0x.." }
		var cur interface{} = m
		for {
			cm, ok := cur.(map[string]interface{})
			if !ok {
				return cur, nil
			}
			if inner, ok := cm["fields"]; ok {
				cur = inner
			} else if inner, ok := cm["id"]; ok {
				cur = inner
			} else if inner, ok := cm["bytes"]; ok {
				cur = inner
			} else {
				return nil, fmt.Errorf("无法将对象 %v 解析为字符串", cm)
			}
		}
	case to.Kind() == reflect.Slice:
		// VecSet { contents: [..] } and VecMap share this layout.
		inner := m
		if f, ok := m["fields"].(map[string]interface{}); ok {
			inner = f
		}
		if contents, ok := inner["contents"]; ok {
			return contents, nil
		}
	}

	return data, nil
}

func millisToTimeHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if to != timeType {
		return data, nil
	}

	switch v := data.(type) {
	case string:
		if v == "" {
			return time.Time{}, nil
		}
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "无法将 '%v' 解析为毫秒时间戳", v)
		}
		return time.UnixMilli(ms), nil
	case float64:
		return time.UnixMilli(int64(v)), nil
	case int64:
		return time.UnixMilli(v), nil
	case int:
		return time.UnixMilli(int64(v)), nil
	}

	return data, nil
}

func stringToBytesHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	s, ok := data.(string)
	if !ok || to != bytesType {
		return data, nil
	}

	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return hexutils.DecodeHex(s)
	}

	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, errors.Wrapf(err, "无法解析字节串 '%v'", s)
	}

	return b, nil
}

// ParseSurvey 将链上对象解析为问卷。
func ParseSurvey(obj *ObjectData) (*survey.SurveyStored, error) {
	var stored survey.SurveyStored
	if err := DecodeFields(obj.Fields, &stored); err != nil {
		return nil, errors.Wrapf(err, "无法解析问卷 %v", obj.ObjectID)
	}
	if stored.ID == "" {
		stored.ID = obj.ObjectID
	}

	return &stored, nil
}

// ParseAnswerBlob 将问卷下的一个动态字段对象解析为加密答卷指针。
func ParseAnswerBlob(obj *ObjectData) (*survey.AnswerBlobStored, error) {
	var fields interface{} = obj.Fields
	if value, ok := obj.Fields["value"]; ok {
		fields = value
	}

	var stored survey.AnswerBlobStored
	if err := DecodeFields(fields, &stored); err != nil {
		return nil, errors.Wrapf(err, "无法解析答卷 %v", obj.ObjectID)
	}
	if stored.BlobID == "" {
		return nil, fmt.Errorf("答卷 %v 缺少 blob ID", obj.ObjectID)
	}

	return &stored, nil
}

// ParseSubscriptionService 将链上对象解析为订阅服务。
func ParseSubscriptionService(obj *ObjectData) (*survey.SubscriptionServiceStored, error) {
	var stored survey.SubscriptionServiceStored
	if err := DecodeFields(obj.Fields, &stored); err != nil {
		return nil, errors.Wrapf(err, "无法解析订阅服务 %v", obj.ObjectID)
	}
	if stored.ID == "" {
		stored.ID = obj.ObjectID
	}

	return &stored, nil
}

// ParseSubscription 将链上对象解析为订阅。持有者取自对象的所有权信息。
func ParseSubscription(obj *ObjectData) (*survey.SubscriptionStored, error) {
	var stored survey.SubscriptionStored
	if err := DecodeFields(obj.Fields, &stored); err != nil {
		return nil, errors.Wrapf(err, "无法解析订阅 %v", obj.ObjectID)
	}
	if stored.ID == "" {
		stored.ID = obj.ObjectID
	}
	stored.Owner = obj.Owner

	return &stored, nil
}
