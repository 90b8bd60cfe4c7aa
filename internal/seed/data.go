package seed

// bilingual is a name in English and Arabic.
type bilingual struct {
	en string
	ar string
}

var categories = []bilingual{
	{"Dairy", "ألبان"},
	{"Bakery", "مخبوزات"},
	{"Beverages", "مشروبات"},
	{"Snacks", "وجبات خفيفة"},
	{"Frozen Foods", "أطعمة مجمدة"},
	{"Canned Goods", "معلبات"},
	{"Fruits & Vegetables", "فواكه وخضروات"},
	{"Meat & Poultry", "لحوم ودواجن"},
	{"Grains & Pasta", "حبوب ومعكرونة"},
	{"Condiments", "توابل وصلصات"},
}

var brands = []bilingual{
	{"Nestle", "نستله"},
	{"Almarai", "المراعي"},
	{"Nadec", "نادك"},
	{"Al Safi", "الصافي"},
	{"Kraft", "كرافت"},
	{"Heinz", "هاينز"},
	{"Americana", "أمريكانا"},
	{"Kellogg's", "كيلوغز"},
	{"Puck", "بوك"},
	{"Sadia", "ساديا"},
}

var foods = []bilingual{
	{"Milk", "حليب"},
	{"Cheese", "جبن"},
	{"Yogurt", "زبادي"},
	{"Labneh", "لبنة"},
	{"Butter", "زبدة"},
	{"Bread", "خبز"},
	{"Rice", "أرز"},
	{"Pasta", "معكرونة"},
	{"Lentils", "عدس"},
	{"Fava Beans", "فول"},
	{"Hummus", "حمص"},
	{"Falafel", "فلافل"},
	{"Chicken", "دجاج"},
	{"Beef", "لحم بقري"},
	{"Fish", "سمك"},
	{"Eggs", "بيض"},
	{"Dates", "تمر"},
	{"Honey", "عسل"},
	{"Olive Oil", "زيت زيتون"},
	{"Orange Juice", "عصير برتقال"},
	{"Tea", "شاي"},
	{"Coffee", "قهوة"},
	{"Chocolate", "شوكولاتة"},
	{"Biscuits", "بسكويت"},
	{"Cake", "كعك"},
	{"Tomatoes", "طماطم"},
	{"Cucumber", "خيار"},
	{"Apples", "تفاح"},
	{"Bananas", "موز"},
	{"Soup", "شوربة"},
}

// prefixes are paired by index.
var prefixes = []bilingual{
	{"New", "جديد"},
	{"Natural", "طبيعي"},
	{"Organic", "عضوي"},
	{"Special", "خاص"},
}

var (
	phraseAdjectivesEn = []string{
		"Advanced", "Balanced", "Classic", "Crunchy", "Daily", "Essential",
		"Family", "Golden", "Hearty", "Light", "Premium", "Rich", "Smooth",
		"Tasty", "Ultimate", "Zesty",
	}
	phraseNounsEn = []string{
		"Blend", "Bites", "Crisps", "Delight", "Feast", "Harvest", "Medley",
		"Mix", "Platter", "Selection", "Snack", "Spread", "Treat", "Twist",
	}
	wordsAr = []string{
		"طازج", "لذيذ", "صحي", "مميز", "خفيف", "غني", "مقرمش", "ذهبي",
		"عائلي", "يومي", "كلاسيكي", "ممتاز", "طعم", "وجبة", "خليط", "مزيج",
	}
	wordsEn = []string{
		"fresh", "quality", "ingredients", "carefully", "selected", "perfect",
		"for", "the", "whole", "family", "enjoy", "every", "day", "with",
		"natural", "flavor", "and", "rich", "texture", "packed", "source",
		"of", "energy", "made", "from", "best", "local", "farms",
	}
)
