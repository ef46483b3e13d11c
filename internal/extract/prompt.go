package extract

import (
	"fmt"
	"strings"
)

// SystemPrompt is the fixed instruction sent as the system message
const SystemPrompt = `أنت مستخرج بيانات أعمال تجارية. استخرج المعلومات من المحادثة واعطني JSON فقط.

القواعد:
1. أجب بـ JSON صالح فقط، بدون أي نص أو شرح
2. رقم الهاتف المصري يبدأ بـ 01 ويتكون من 11 رقم
3. إذا لم تجد معلومة، اجعل القيمة null
4. نوع النشاط: restaurant, store, services, clinic, salon, other

الحقول المطلوبة:
{
  "businessName": "اسم النشاط التجاري",
  "tagline": "شعار أو وصف قصير",
  "phone": "01XXXXXXXXX",
  "whatsapp": "01XXXXXXXXX أو null",
  "email": "email@example.com أو null",
  "address": "العنوان أو null",
  "services": [{"title": "اسم الخدمة", "description": "وصف قصير"}],
  "businessType": "restaurant|store|services|clinic|salon|other"
}`

// Example pairs a sample transcript with its exact expected output
type Example struct {
	Transcript string
	Output     string // compact JSON
}

// Examples are the worked few-shot examples embedded in every prompt
var Examples = []Example{
	{
		Transcript: "اسمي أحمد وعندي مطعم اسمه مطعم النيل ورقمي 01012345678",
		Output:     `{"businessName":"مطعم النيل","tagline":null,"phone":"01012345678","whatsapp":null,"email":null,"address":null,"services":[],"businessType":"restaurant"}`,
	},
	{
		Transcript: "صالون جمال الست فاطمة في المعادي، بنعمل شعر ومكياج، الموبايل ٠١٢٣٤٥٦٧٨٩٠",
		Output:     `{"businessName":"صالون جمال الست فاطمة","tagline":null,"phone":"01234567890","whatsapp":null,"email":null,"address":"المعادي","services":[{"title":"شعر","description":"خدمات الشعر"},{"title":"مكياج","description":"خدمات المكياج"}],"businessType":"salon"}`,
	},
}

// BuildPrompt constructs the user message: instructions, worked examples and the transcript
func BuildPrompt(transcript string) string {
	var b strings.Builder

	b.WriteString(SystemPrompt)
	b.WriteString("\n\nأمثلة:\n")

	for i, ex := range Examples {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "\nمحادثة: %q\nJSON: %s\n", ex.Transcript, ex.Output)
	}

	b.WriteString("\n---\n\nالمحادثة الحالية:\n")
	fmt.Fprintf(&b, "%q\n\nJSON:", transcript)

	return b.String()
}
