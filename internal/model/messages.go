package model

import (
	"errors"
	"fmt"
)

// User-facing messages (Arabic). Internal details never appear in these.
const (
	MsgInvalidData       = "بيانات غير صالحة"
	MsgInsufficientData  = "لم يتم العثور على معلومات كافية"
	MsgExtractFailed     = "فشل في الاستخراج"
	MsgServerSlow        = "الخادم بطيء، حاول مرة أخرى"
	MsgServerBusy        = "الخادم مشغول، حاول لاحقاً"
	MsgConnectionFailed  = "فشل الاتصال بالخادم"
	MsgPreviewFailed     = "فشل في إنشاء المعاينة"
	MsgTemplateLoad      = "فشل في تحميل القالب"
	MsgTemplateMismatchF = "خطأ في القالب: %s غير موجود"
	MsgTranscriptMissing = "نص المحادثة مطلوب"
	MsgSessionNotFound   = "الجلسة غير موجودة"
	MsgExtractionRetry   = "عذراً، لم نتمكن من استخراج جميع البيانات. يرجى التأكد من كتابة التفاصيل بوضوح."

	MsgNameRequired    = "اسم النشاط مطلوب"
	MsgNameLength      = "اسم النشاط يجب أن يكون بين 2 و 100 حرف"
	MsgTaglineLength   = "الشعار يجب ألا يزيد عن 200 حرف"
	MsgPhoneRequired   = "رقم الهاتف مطلوب"
	MsgPhoneFormat     = "رقم الهاتف يجب أن يكون 11 رقم ويبدأ بـ 01"
	MsgEmailFormat     = "البريد الإلكتروني غير صالح"
	MsgAddressLength   = "العنوان يجب ألا يزيد عن 200 حرف"
	MsgCityLength      = "المدينة يجب ألا تزيد عن 50 حرف"
	MsgServicesMax     = "عدد الخدمات يجب ألا يزيد عن 6"
	MsgServiceTitle    = "عنوان الخدمة يجب أن يكون بين 2 و 100 حرف"
	MsgServiceDesc     = "وصف الخدمة يجب ألا يزيد عن 300 حرف"
	MsgURLFormat       = "رابط غير صالح"
	MsgBusinessType    = "نوع النشاط غير معروف"
	MsgWrongType       = "نوع القيمة غير صحيح"
	MsgColorFormat     = "اللون يجب أن يكون بصيغة #RRGGBB"
	MsgFontFamily      = "اسم الخط غير صالح"
	MsgTemplateIDEmpty = "معرف القالب مطلوب"
)

// TemplateMismatchMessage returns the user message for a missing template marker
func TemplateMismatchMessage(selector string) string {
	return fmt.Sprintf(MsgTemplateMismatchF, selector)
}

// UserMessage maps an extraction error to a short user-facing message
func UserMessage(err error) string {
	var fe *FieldError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &fe):
		if fe.Reason != "" {
			return fe.Reason
		}
		return MsgInvalidData
	case errors.Is(err, ErrTimeout):
		return MsgServerSlow
	case errors.Is(err, ErrRateLimited):
		return MsgServerBusy
	case errors.Is(err, ErrNetwork):
		return MsgConnectionFailed
	case errors.Is(err, ErrInsufficientData):
		return MsgInsufficientData
	case errors.Is(err, ErrParseFailure), errors.Is(err, ErrSchemaViolation):
		return MsgInvalidData
	default:
		return MsgExtractFailed
	}
}
