package domains

// ProductOffer is one purchasable product plan presented to the client.
type ProductOffer struct {
	ID            string   `json:"id"`
	Category      string   `json:"category"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Price         string   `json:"price"`
	Period        string   `json:"period"`
	OriginalPrice string   `json:"originalPrice"`
	Tags          []string `json:"tags"`
	LearnMoreURL  string   `json:"learnMoreUrl"`
	Icon          string   `json:"icon"`
	Visual        string   `json:"visual"`
	Features      []string `json:"features,omitempty"`
	Storage       string   `json:"storage,omitempty"`
	Savings       string   `json:"savings,omitempty"`
	Badge         string   `json:"badge,omitempty"`
}

// ProductResult is the structured payload returned by the product tools.
// Category echoes the requested category even when it selected the default
// product list.
type ProductResult struct {
	Products     []ProductOffer `json:"products"`
	Category     string         `json:"category"`
	TotalResults int            `json:"totalResults"`
}

const defaultProductCategory = "email"

// productCatalog is the static plan catalog, keyed by category.
var productCatalog = map[string][]ProductOffer{
	"email": {
		{
			ID:       "email-essentials",
			Category: "email",
			Name:     "Microsoft 365 Email Essentials",
			Description: "Best for building trust — with an email address that matches your domain. " +
				"Plus, get 10 GB email storage, world-class data security, and spam filtering.",
			Price:         "$1.99",
			Period:        "/user/mo",
			OriginalPrice: "$7.99",
			Tags:          []string{"EMAIL MATCHES DOMAIN"},
			LearnMoreURL:  "https://www.godaddy.com/email",
			Icon:          "mail",
			Visual:        "https://img1.wsimg.com/cdn/Image/All/All/1/All/af30fba5-406f-4f61-9969-4a076b6b062c/feature-category-email2x.jpg",
			Features: []string{
				"10 GB email storage",
				"Professional email with your domain",
				"World-class data security and spam filtering",
			},
			Storage: "10 GB",
			Savings: "Save 75%",
		},
		{
			ID:       "email-plus",
			Category: "email",
			Name:     "Microsoft 365 Email Plus with Security",
			Description: "Best for scaling businesses. Get Email Essentials with 50 GB email storage " +
				"for your growing customer list and marketing to them.",
			Price:         "$5.99",
			Period:        "/user/mo",
			OriginalPrice: "$9.99",
			Tags:          []string{"ADDITIONAL STORAGE"},
			LearnMoreURL:  "https://www.godaddy.com/email",
			Icon:          "mail",
			Visual:        "https://img1.wsimg.com/cdn/Image/All/All/1/All/af30fba5-406f-4f61-9969-4a076b6b062c/feature-category-email2x.jpg",
			Features: []string{
				"50 GB email storage",
				"Advanced security features",
				"Professional email with your domain",
			},
			Storage: "50 GB",
			Savings: "Save 40%",
		},
		{
			ID:       "email-professional",
			Category: "email",
			Name:     "Microsoft 365 Secure Business Professional",
			Description: "Best for maximizing productivity. Get Email Plus and Microsoft 365 apps like " +
				"Word, Excel, PowerPoint, and Teams. Includes 1 TB secure OneDrive storage for your growth.",
			Price:         "$11.99",
			Period:        "/user/mo",
			OriginalPrice: "$26.99",
			Tags:          []string{"M365 OFFICE APPS"},
			LearnMoreURL:  "https://www.godaddy.com/email",
			Icon:          "mail",
			Visual:        "https://img1.wsimg.com/cdn/Image/All/All/1/All/af30fba5-406f-4f61-9969-4a076b6b062c/feature-category-email2x.jpg",
			Features: []string{
				"1 TB secure OneDrive storage",
				"Microsoft 365 apps (Word, Excel, PowerPoint, Teams)",
				"Professional email with your domain",
				"Advanced security and compliance features",
			},
			Storage: "1 TB",
			Savings: "55% savings with an annual term",
			Badge:   "MOST POPULAR",
		},
	},
	"website": {
		{
			ID:            "website-builder-basic",
			Category:      "website",
			Name:          "Website Builder Basic",
			Description:   "Get your business moving with a professional website, email address and marketing tools",
			Price:         "$10.99",
			Period:        "/mo",
			OriginalPrice: "$16.99",
			Tags:          []string{"FOR GETTING STARTED"},
			LearnMoreURL:  "https://www.godaddy.com/websites/website-builder",
			Icon:          "globe",
			Visual:        "https://img1.wsimg.com/cdn/Image/All/All/1/All/3650f391-adb0-4258-a855-d79e50927976/feature-category-websites2x.jpg",
			Savings:       "Save 35%",
		},
		{
			ID:            "website-builder-premium",
			Category:      "website",
			Name:          "Website Builder Premium",
			Description:   "Reach more customers with expanded social media and email marketing tools",
			Price:         "$16.99",
			Period:        "/mo",
			OriginalPrice: "$29.99",
			Tags:          []string{"FOR LARGER CUSTOMER REACH"},
			LearnMoreURL:  "https://www.godaddy.com/websites/website-builder",
			Icon:          "globe",
			Visual:        "https://img1.wsimg.com/cdn/Image/All/All/1/All/3650f391-adb0-4258-a855-d79e50927976/feature-category-websites2x.jpg",
			Savings:       "Save 43%",
			Badge:         "RECOMMENDED",
		},
		{
			ID:            "website-builder-commerce",
			Category:      "website",
			Name:          "Website Builder Commerce",
			Description:   "Easily manage your inventory and sell online",
			Price:         "$23.99",
			Period:        "/mo",
			OriginalPrice: "$34.99",
			Tags:          []string{"FOR SCALABILITY AND AUTOMATION"},
			LearnMoreURL:  "https://www.godaddy.com/websites/website-builder",
			Icon:          "globe",
			Visual:        "https://img1.wsimg.com/cdn/Image/All/All/1/All/3650f391-adb0-4258-a855-d79e50927976/feature-category-websites2x.jpg",
			Savings:       "Save 31%",
		},
	},
	"ssl-security": {
		{
			ID:            "ssl-dv-single-domain",
			Category:      "ssl-security",
			Name:          "Single Domain DV SSL",
			Description:   "Basic SSL certificate.",
			Price:         "$69.99",
			Period:        "/yr",
			OriginalPrice: "$119.99",
			Tags:          []string{"1 WEBSITE"},
			LearnMoreURL:  "https://www.godaddy.com/web-security/ssl-certificate",
			Icon:          "shield",
			Visual:        "https://img1.wsimg.com/cdnassets/transform/e3f72038-9d34-4119-80e9-4a0277439707/FOSMO-97668-SSL-Marquee-Image-Bug",
			Savings:       "Save 41%",
		},
		{
			ID:       "ssl-dv-managed",
			Category: "ssl-security",
			Name:     "Managed DV SSL Certificate",
			Description: "Leave installation and maintenance to the provider, while enjoying higher " +
				"rankings and more traffic.",
			Price:         "$99.99",
			Period:        "/yr",
			OriginalPrice: "$199.99",
			Tags:          []string{"1 WEBSITE", "FULLY MANAGED"},
			LearnMoreURL:  "https://www.godaddy.com/web-security/ssl-certificate",
			Icon:          "shield",
			Visual:        "https://img1.wsimg.com/cdnassets/transform/ad6407d6-dd19-40e3-8065-7deb0683af83/mrq-en-mssl-fosmo-90846",
			Savings:       "Save 50%",
			Badge:         "INSTALLED IN UNDER 1 HOUR",
		},
		{
			ID:       "ssl-san-multi-domain",
			Category: "ssl-security",
			Name:     "Multi-domain SAN SSL Certificate",
			Description: "Encrypt multiple websites and/or servers while saving cost vs. multiple " +
				"single-domain certificates.",
			Price:         "$219.99",
			Period:        "/yr",
			OriginalPrice: "$299.99",
			Tags:          []string{"5 WEBSITES"},
			LearnMoreURL:  "https://www.godaddy.com/web-security/ssl-certificate",
			Icon:          "shield",
			Visual:        "https://img1.wsimg.com/cdnassets/transform/e3f72038-9d34-4119-80e9-4a0277439707/FOSMO-97668-SSL-Marquee-Image-Bug",
			Savings:       "Save 26%",
		},
	},
}

// recommendProducts returns the plans for category. An unknown category falls
// back to the default list but is still echoed back unchanged.
func recommendProducts(category string) ProductResult {
	products, ok := productCatalog[category]
	if !ok {
		products = productCatalog[defaultProductCategory]
	}
	return ProductResult{
		Products:     products,
		Category:     category,
		TotalResults: len(products),
	}
}
