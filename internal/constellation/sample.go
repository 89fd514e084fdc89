package constellation

import "github.com/goatcheese98/career-constellation/pkg/models"

// SampleRecords returns the built-in dataset used when the job table cannot
// be loaded. It runs through the same pipeline as real data.
func SampleRecords() []models.RawRecord {
	out := make([]models.RawRecord, len(sampleRecords))
	copy(out, sampleRecords)
	return out
}

var sampleRecords = []models.RawRecord{
	{
		Title:            "Finance Manager",
		Summary:          "Oversees financial operations and strategy for the site",
		Responsibilities: "Financial reporting, budgeting, forecasting, and analysis. Manage accounting team.",
		Qualifications:   "CPA designation, 10 years experience, leadership skills, Excel proficiency.",
	},
	{
		Title:            "Senior Accountant",
		Summary:          "Responsible for monthly close and financial reporting",
		Responsibilities: "Prepare journal entries, reconcile accounts, produce financial statements.",
		Qualifications:   "Accounting degree, 5 years experience, knowledge of GAAP, attention to detail.",
	},
	{
		Title:            "Financial Analyst",
		Summary:          "Analyzes financial data to support business decisions",
		Responsibilities: "Build financial models, perform variance analysis, create dashboards.",
		Qualifications:   "Finance degree, analytical skills, advanced Excel, modeling experience.",
	},
	{
		Title:            "Budget Coordinator",
		Summary:          "Coordinates annual budget preparation and monitoring",
		Responsibilities: "Collect budget inputs, track spending, prepare budget reports.",
		Qualifications:   "Business degree, organizational skills, Excel, communication skills.",
	},
	{
		Title:            "Senior Process Engineer",
		Summary:          "Optimizes plant processes for maximum efficiency",
		Responsibilities: "Monitor process parameters, troubleshoot issues, optimize yields.",
		Qualifications:   "Chemical engineering degree, 7 years experience, process simulation skills.",
	},
	{
		Title:            "Process Engineer",
		Summary:          "Provides process engineering support for operations",
		Responsibilities: "Conduct process studies, develop procedures, support troubleshooting.",
		Qualifications:   "Engineering degree, problem-solving skills, teamwork, communication.",
	},
	{
		Title:            "Mechanical Engineer",
		Summary:          "Designs and maintains mechanical equipment",
		Responsibilities: "Design equipment modifications, perform calculations, review drawings.",
		Qualifications:   "Mechanical engineering degree, CAD skills, PE license preferred.",
	},
	{
		Title:            "Project Engineer",
		Summary:          "Manages capital projects from conception to completion",
		Responsibilities: "Manage project scope, schedule, and budget. Coordinate with stakeholders.",
		Qualifications:   "Engineering degree, project management certification, leadership.",
	},
	{
		Title:            "HR Advisor",
		Summary:          "Partners with leaders on HR strategies and employee relations",
		Responsibilities: "Advise managers on HR policies, handle employee relations issues.",
		Qualifications:   "HR degree, 5 years experience, employee relations, conflict resolution.",
	},
	{
		Title:            "HR Manager",
		Summary:          "Leads HR department and develops people strategies",
		Responsibilities: "Develop HR strategy, manage HR team, oversee talent programs.",
		Qualifications:   "HR degree, 10 years experience, strategic thinking, leadership.",
	},
	{
		Title:            "Recruitment Specialist",
		Summary:          "Manages full-cycle recruitment for all positions",
		Responsibilities: "Source candidates, conduct interviews, manage applicant tracking system.",
		Qualifications:   "HR background, sourcing skills, interviewing experience, ATS knowledge.",
	},
	{
		Title:            "Training Coordinator",
		Summary:          "Develops and delivers training programs for employees",
		Responsibilities: "Assess training needs, design curriculum, deliver training sessions.",
		Qualifications:   "Education background, presentation skills, curriculum design.",
	},
	{
		Title:            "Safety Manager",
		Summary:          "Ensures workplace safety and regulatory compliance",
		Responsibilities: "Develop safety programs, investigate incidents, ensure regulatory compliance.",
		Qualifications:   "Safety certification, 10 years experience, regulatory knowledge, leadership.",
	},
	{
		Title:            "Safety Coordinator",
		Summary:          "Coordinates daily safety activities and inspections",
		Responsibilities: "Conduct safety inspections, maintain safety records, coordinate training.",
		Qualifications:   "Safety training, attention to detail, communication, inspection skills.",
	},
	{
		Title:            "Environmental Specialist",
		Summary:          "Manages environmental programs and compliance",
		Responsibilities: "Monitor emissions, manage waste programs, prepare regulatory reports.",
		Qualifications:   "Environmental science degree, regulatory knowledge, data analysis.",
	},
	{
		Title:            "Compliance Officer",
		Summary:          "Ensures adherence to corporate policies and regulations",
		Responsibilities: "Audit processes for compliance, develop policies, conduct investigations.",
		Qualifications:   "Legal or compliance background, attention to detail, investigation skills.",
	},
	{
		Title:            "Operations Manager",
		Summary:          "Oversees daily plant operations and production targets",
		Responsibilities: "Manage production schedules, optimize resources, ensure quality output.",
		Qualifications:   "Operations experience, leadership, decision-making, problem-solving.",
	},
	{
		Title:            "Plant Operator",
		Summary:          "Operates process equipment and monitors parameters",
		Responsibilities: "Monitor control systems, respond to alarms, maintain logbooks.",
		Qualifications:   "Technical aptitude, attention to detail, teamwork, shift work.",
	},
	{
		Title:            "Maintenance Supervisor",
		Summary:          "Leads maintenance team and schedules work",
		Responsibilities: "Schedule maintenance work, manage spare parts, supervise technicians.",
		Qualifications:   "Technical background, leadership, planning skills, maintenance knowledge.",
	},
	{
		Title:            "Technician",
		Summary:          "Performs equipment repairs and preventive maintenance",
		Responsibilities: "Repair equipment, perform PMs, maintain documentation.",
		Qualifications:   "Technical diploma, mechanical aptitude, troubleshooting skills.",
	},
	{
		Title:            "Procurement Manager",
		Summary:          "Manages procurement function and vendor relationships",
		Responsibilities: "Develop sourcing strategies, negotiate contracts, manage vendors.",
		Qualifications:   "Supply chain degree, negotiation skills, vendor management experience.",
	},
	{
		Title:            "Buyer",
		Summary:          "Processes purchase orders and manages inventory",
		Responsibilities: "Issue POs, track deliveries, resolve invoice discrepancies.",
		Qualifications:   "Business degree, organizational skills, attention to detail.",
	},
	{
		Title:            "Contract Administrator",
		Summary:          "Administers contracts and tracks compliance",
		Responsibilities: "Draft contracts, track obligations, maintain contract database.",
		Qualifications:   "Legal or business background, contract knowledge, organization.",
	},
	{
		Title:            "Supply Chain Analyst",
		Summary:          "Analyzes supply chain data and optimizes logistics",
		Responsibilities: "Analyze spend data, optimize inventory, improve logistics processes.",
		Qualifications:   "Supply chain degree, analytical skills, Excel, data analysis.",
	},
	{
		Title:            "IT Manager",
		Summary:          "Manages IT infrastructure and support services",
		Responsibilities: "Manage IT projects, oversee helpdesk, ensure system availability.",
		Qualifications:   "IT degree, 10 years experience, infrastructure knowledge, leadership.",
	},
	{
		Title:            "Systems Analyst",
		Summary:          "Analyzes business requirements and system solutions",
		Responsibilities: "Gather requirements, document processes, configure systems.",
		Qualifications:   "IT degree, analytical skills, SQL knowledge, business acumen.",
	},
	{
		Title:            "Network Administrator",
		Summary:          "Maintains network security and connectivity",
		Responsibilities: "Monitor network performance, troubleshoot issues, manage security.",
		Qualifications:   "IT certification, network knowledge, troubleshooting, security awareness.",
	},
	{
		Title:            "Database Administrator",
		Summary:          "Manages database systems and ensures data integrity",
		Responsibilities: "Perform database tuning, backups, and troubleshoot database issues.",
		Qualifications:   "Database certification, SQL expertise, performance tuning.",
	},
	{
		Title:            "Marketing Manager",
		Summary:          "Develops marketing strategies and brand positioning",
		Responsibilities: "Develop marketing plans, manage campaigns, analyze market trends.",
		Qualifications:   "Marketing degree, strategic thinking, campaign management, creativity.",
	},
	{
		Title:            "Communications Specialist",
		Summary:          "Manages internal and external communications",
		Responsibilities: "Write communications, manage intranet, coordinate events.",
		Qualifications:   "Communications degree, writing skills, media relations, organization.",
	},
	{
		Title:            "Graphic Designer",
		Summary:          "Creates visual designs for marketing materials",
		Responsibilities: "Design brochures, create digital assets, maintain brand standards.",
		Qualifications:   "Design degree, Adobe Creative Suite, portfolio, creativity.",
	},
	{
		Title:            "Content Writer",
		Summary:          "Produces written content for various channels",
		Responsibilities: "Write articles, edit content, manage editorial calendar.",
		Qualifications:   "English or journalism degree, writing samples, editing skills, creativity.",
	},
}
